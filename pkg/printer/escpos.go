package printer

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	esc = 0x1B
	gs  = 0x1D
	lf  = 0x0A
)

// DefaultWidth is the character width of 58mm paper.
const DefaultWidth = 32

type Align byte

const (
	AlignLeft   Align = 0
	AlignCenter Align = 1
	AlignRight  Align = 2
)

type FontSize byte

const (
	FontNormal FontSize = 0x00
	FontTall   FontSize = 0x01
	FontWide   FontSize = 0x10
	FontDouble FontSize = 0x11
)

// Document accumulates an ESC/POS byte stream for a thermal printer.
type Document struct {
	buf   bytes.Buffer
	width int
}

// NewDocument starts a document for the given print width in characters
// (32 for 58mm paper, 48 for 80mm).
func NewDocument(width int) *Document {
	if width <= 0 {
		width = DefaultWidth
	}
	d := &Document{width: width}
	d.buf.Write([]byte{esc, '@'})
	return d
}

func (d *Document) Width() int {
	return d.width
}

func (d *Document) Align(a Align) *Document {
	d.buf.Write([]byte{esc, 'a', byte(a)})
	return d
}

func (d *Document) Bold(on bool) *Document {
	var flag byte
	if on {
		flag = 1
	}
	d.buf.Write([]byte{esc, 'E', flag})
	return d
}

func (d *Document) Size(size FontSize) *Document {
	d.buf.Write([]byte{gs, '!', byte(size)})
	return d
}

// Line writes s followed by a line feed. Text wider than the paper is wrapped by the printer.
func (d *Document) Line(s string) *Document {
	d.buf.WriteString(s)
	d.buf.WriteByte(lf)
	return d
}

func (d *Document) Linef(format string, args ...any) *Document {
	return d.Line(fmt.Sprintf(format, args...))
}

func (d *Document) Separator(char rune) *Document {
	return d.Line(strings.Repeat(string(char), d.width))
}

// Columns prints left flush left and right flush right on one line. When both
// do not fit, left is truncated so the right column stays readable.
func (d *Document) Columns(left, right string) *Document {
	room := d.width - utf8.RuneCountInString(right) - 1
	if room < 1 {
		return d.Line(left).Line(right)
	}
	left = truncate(left, room)
	gap := d.width - utf8.RuneCountInString(left) - utf8.RuneCountInString(right)
	return d.Line(left + strings.Repeat(" ", gap) + right)
}

func (d *Document) Feed(n int) *Document {
	for i := 0; i < n; i++ {
		d.buf.WriteByte(lf)
	}
	return d
}

func (d *Document) Cut() *Document {
	d.buf.Write([]byte{gs, 'V', 0x01})
	return d
}

func (d *Document) Bytes() []byte {
	return d.buf.Bytes()
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
