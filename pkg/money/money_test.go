package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		amount string
		rate   string
		want   string
	}{
		{"200", "5", "10"},
		{"199.99", "18", "35.9982"},
		{"0", "12", "0"},
		{"150", "0", "0"},
	}
	for _, tt := range tests {
		got := Percent(decimal.RequireFromString(tt.amount), decimal.RequireFromString(tt.rate))
		assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "%s%% of %s: got %s", tt.rate, tt.amount, got)
	}
}

func TestRoundAndFormat(t *testing.T) {
	assert.Equal(t, "35.90", Format(Round(decimal.RequireFromString("35.8982"))))
	assert.Equal(t, "10.01", Format(Round(decimal.RequireFromString("10.005"))))
	assert.Equal(t, "210.00", Format(decimal.NewFromInt(210)))
}

func TestValidRate(t *testing.T) {
	assert.True(t, ValidRate(decimal.Zero))
	assert.True(t, ValidRate(decimal.NewFromInt(100)))
	assert.False(t, ValidRate(decimal.NewFromInt(-1)))
	assert.False(t, ValidRate(decimal.RequireFromString("100.01")))
}
