package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/posterminal/pkg/errors"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func sampleItem(barcode string, price string, gst string) LineItem {
	return LineItem{
		ItemID:        "item-" + barcode,
		Barcode:       barcode,
		Name:          "Item " + barcode,
		UnitPrice:     dec(price),
		SalePrice:     dec(price),
		GSTPercentage: dec(gst),
	}
}

func TestTotalsExample(t *testing.T) {
	c := New(FlowPointOfSale)
	require.NoError(t, c.AddOrMerge(sampleItem("A1", "100", "5"), 2))

	totals := c.Totals()
	assert.Equal(t, "200.00", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "10.00", totals.Tax.StringFixed(2))
	assert.Equal(t, "0.00", totals.Discount.StringFixed(2))
	assert.Equal(t, "210.00", totals.Total.StringFixed(2))
}

func TestTotalUsesRoundedComponents(t *testing.T) {
	c := New(FlowPointOfSale)
	require.NoError(t, c.AddOrMerge(sampleItem("A1", "0.335", "18"), 3))
	require.NoError(t, c.AddOrMerge(sampleItem("B2", "19.99", "12.5"), 1))
	require.NoError(t, c.SetDiscountPercent(1, dec("7.5")))
	_, err := c.ToggleDiscount(1)
	require.NoError(t, err)

	totals := c.Totals()
	expected := totals.Subtotal.Add(totals.Tax).Sub(totals.Discount).Round(2)
	if !totals.Total.Equal(expected) {
		t.Fatalf("expected total %s, got %s", expected, totals.Total)
	}
	for _, v := range []decimal.Decimal{totals.Subtotal, totals.Tax, totals.Discount, totals.Total} {
		if !v.Equal(v.Round(2)) {
			t.Fatalf("expected %s rounded to 2 places", v)
		}
	}
}

func TestAddOrMergeByBarcode(t *testing.T) {
	c := New(FlowPointOfSale)
	item := sampleItem("A1", "10", "0")
	item.ItemID = ""

	require.NoError(t, c.AddOrMerge(item, 0))
	require.NoError(t, c.AddOrMerge(item, 0))
	require.NoError(t, c.AddOrMerge(sampleItem("B2", "5", "0"), 1))

	if c.LineCount() != 2 {
		t.Fatalf("expected 2 lines, got %d", c.LineCount())
	}
	if c.UnitCount() != 3 {
		t.Fatalf("expected 3 units, got %d", c.UnitCount())
	}
	first, err := c.Item(0)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Quantity)
	assert.Equal(t, "20.00", first.TotalPrice.StringFixed(2))
}

func TestAddOrMergeRefusesBeyondStock(t *testing.T) {
	c := New(FlowPointOfSale)
	item := sampleItem("A1", "10", "0")
	item.CurrentQuantity = IntPtr(2)

	require.NoError(t, c.AddOrMerge(item, 2))
	err := c.AddOrMerge(item, 1)
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	line, _ := c.Item(0)
	assert.Equal(t, 2, line.Quantity)
}

func TestAddOrMergeRejectsInvalid(t *testing.T) {
	cases := map[string]LineItem{
		"zero price":    {ItemID: "x", Barcode: "x", UnitPrice: decimal.Zero, SalePrice: dec("1")},
		"negative sale": {ItemID: "x", Barcode: "x", UnitPrice: dec("1"), SalePrice: dec("-1")},
		"no identity":   {Name: "thing", UnitPrice: dec("1"), SalePrice: dec("1")},
		"new no name":   {Barcode: "x", UnitPrice: dec("1"), SalePrice: dec("1")},
		"discount high": {ItemID: "x", UnitPrice: dec("1"), SalePrice: dec("1"), DiscountPercent: dec("101")},
	}
	for name, item := range cases {
		t.Run(name, func(t *testing.T) {
			c := New(FlowPointOfSale)
			err := c.AddOrMerge(item, 1)
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !c.IsEmpty() {
				t.Fatalf("expected cart unchanged")
			}
		})
	}
}

func TestSetQuantityClampsToStock(t *testing.T) {
	c := New(FlowPointOfSale)
	item := sampleItem("A1", "10", "0")
	item.CurrentQuantity = IntPtr(4)
	require.NoError(t, c.AddOrMerge(item, 1))

	notice, err := c.SetQuantity(0, 9)
	require.NoError(t, err)
	assert.Equal(t, NoticeWarning, notice.Level)
	line, _ := c.Item(0)
	if line.Quantity != 4 {
		t.Fatalf("expected quantity clamped to 4, got %d", line.Quantity)
	}
	assert.Equal(t, "40.00", line.TotalPrice.StringFixed(2))
}

func TestSetQuantityIgnoresBelowOne(t *testing.T) {
	c := New(FlowPointOfSale)
	require.NoError(t, c.AddOrMerge(sampleItem("A1", "10", "0"), 3))

	for _, qty := range []int{0, -2} {
		notice, err := c.SetQuantity(0, qty)
		require.NoError(t, err)
		assert.True(t, notice.IsZero())
	}
	line, _ := c.Item(0)
	assert.Equal(t, 3, line.Quantity)

	_, err := c.SetQuantity(5, 1)
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestToggleDiscountRoundTrip(t *testing.T) {
	c := New(FlowPointOfSale)
	item := sampleItem("A1", "100", "5")
	item.DiscountPercent = dec("10")
	require.NoError(t, c.AddOrMerge(item, 1))

	on, err := c.ToggleDiscount(0)
	require.NoError(t, err)
	require.True(t, on)
	line, _ := c.Item(0)
	original := line.DiscountAmount
	assert.Equal(t, "10.50", original.StringFixed(2))

	for i := 0; i < 2; i++ {
		_, err = c.ToggleDiscount(0)
		require.NoError(t, err)
		line, _ = c.Item(0)
		assert.True(t, line.DiscountAmount.IsZero())
		assert.Equal(t, "10", line.DiscountPercent.String())

		_, err = c.ToggleDiscount(0)
		require.NoError(t, err)
		line, _ = c.Item(0)
		if !line.DiscountAmount.Equal(original) {
			t.Fatalf("expected discount %s restored, got %s", original, line.DiscountAmount)
		}
	}
}

func TestDiscountConventionPerFlow(t *testing.T) {
	item := LineItem{
		ItemID:          "i1",
		Barcode:         "A1",
		Name:            "Widget",
		UnitPrice:       dec("80"),
		SalePrice:       dec("100"),
		GSTPercentage:   dec("10"),
		DiscountPercent: dec("10"),
	}

	pos := New(FlowPointOfSale)
	require.NoError(t, pos.AddOrMerge(item, 2))
	_, err := pos.ToggleDiscount(0)
	require.NoError(t, err)
	line, _ := pos.Item(0)
	// (100 + 10) * 2 * 10%
	assert.Equal(t, "22.00", line.DiscountAmount.StringFixed(2))
	assert.Equal(t, "198.00", line.TotalPrice.StringFixed(2))

	po := New(FlowPurchaseOrder)
	require.NoError(t, po.AddOrMerge(item, 2))
	_, err = po.ToggleDiscount(0)
	require.NoError(t, err)
	line, _ = po.Item(0)
	// 80 * 2 * 10%
	assert.Equal(t, "16.00", line.DiscountAmount.StringFixed(2))
	assert.Equal(t, "16.00", line.TaxAmount.StringFixed(2))
	assert.Equal(t, "144.00", line.TotalPrice.StringFixed(2))

	totals := po.Totals()
	assert.Equal(t, "160.00", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "160.00", totals.Total.StringFixed(2))
}

func TestRemoveRecomputesTotals(t *testing.T) {
	c := New(FlowPointOfSale)
	require.NoError(t, c.AddOrMerge(sampleItem("A1", "100", "5"), 2))
	require.NoError(t, c.AddOrMerge(sampleItem("B2", "40", "0"), 1))

	require.NoError(t, c.Remove(0))
	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "B2", items[0].Barcode)

	totals := c.Totals()
	assert.Equal(t, "40.00", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "40.00", totals.Total.StringFixed(2))

	if err := c.Remove(3); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestItemsReturnsCopies(t *testing.T) {
	c := New(FlowPointOfSale)
	item := sampleItem("A1", "10", "0")
	item.CurrentQuantity = IntPtr(5)
	require.NoError(t, c.AddOrMerge(item, 1))

	items := c.Items()
	items[0].Quantity = 99
	*items[0].CurrentQuantity = 0

	line, _ := c.Item(0)
	assert.Equal(t, 1, line.Quantity)
	assert.Equal(t, 5, line.Stock())
}

func TestRestoreClampsAndDrops(t *testing.T) {
	over := sampleItem("A1", "10", "0")
	over.Quantity = 8
	over.CurrentQuantity = IntPtr(3)
	gone := sampleItem("B2", "10", "0")
	gone.Quantity = 1
	gone.CurrentQuantity = IntPtr(0)
	bad := sampleItem("C3", "0", "0")
	bad.Quantity = 1

	c := New(FlowPointOfSale)
	dropped := c.Restore([]LineItem{over, gone, bad})
	assert.Equal(t, 2, dropped)
	require.Equal(t, 1, c.LineCount())
	line, _ := c.Item(0)
	assert.Equal(t, 3, line.Quantity)
	assert.Equal(t, "30.00", line.TotalPrice.StringFixed(2))
}
