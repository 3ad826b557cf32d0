// Package escpos renders structured order data into ESC/POS command
// bytes for thermal kitchen printers.
package escpos

import (
	"strings"
)

const (
	esc byte = 0x1b
	gs  byte = 0x1d
	lf  byte = 0x0a
	cr  byte = 0x0d
)

// PaperWidth is the printable width in characters for the printer's
// monospace font at normal size.
type PaperWidth int

const (
	Width58mm PaperWidth = 32
	Width80mm PaperWidth = 48
)

type Alignment byte

const (
	AlignLeft   Alignment = 0
	AlignCenter Alignment = 1
	AlignRight  Alignment = 2
)

type TextSize byte

const (
	SizeNormal       TextSize = 0x00
	SizeDoubleWidth  TextSize = 0x10
	SizeDoubleHeight TextSize = 0x20
	SizeDoubleBoth   TextSize = 0x30
)

type BarcodeType byte

const (
	BarcodeUPCA    BarcodeType = 65
	BarcodeUPCE    BarcodeType = 66
	BarcodeEAN13   BarcodeType = 67
	BarcodeEAN8    BarcodeType = 68
	BarcodeCODE39  BarcodeType = 69
	BarcodeITF     BarcodeType = 70
	BarcodeCODABAR BarcodeType = 71
	BarcodeCODE93  BarcodeType = 72
	BarcodeCODE128 BarcodeType = 73
)

// Builder accumulates ESC/POS command bytes.
type Builder struct {
	buf        []byte
	paperWidth PaperWidth
}

// New returns a Builder targeting the given paper width.
func New(paperWidth PaperWidth) *Builder {
	return &Builder{paperWidth: paperWidth}
}

// Build returns the accumulated command buffer.
func (b *Builder) Build() []byte { return b.buf }

func (b *Builder) Initialize() *Builder {
	b.buf = append(b.buf, esc, 0x40)
	return b
}

func (b *Builder) Text(s string) *Builder {
	b.buf = append(b.buf, s...)
	return b
}

func (b *Builder) Feed(lines int) *Builder {
	for i := 0; i < lines; i++ {
		b.buf = append(b.buf, lf)
	}
	return b
}

func (b *Builder) NewLine() *Builder {
	b.buf = append(b.buf, cr, lf)
	return b
}

func (b *Builder) Align(a Alignment) *Builder {
	b.buf = append(b.buf, esc, 0x61, byte(a))
	return b
}

func (b *Builder) Size(s TextSize) *Builder {
	b.buf = append(b.buf, gs, 0x21, byte(s))
	return b
}

// SizeWH sets independent width/height multipliers, w,h in 1..8.
func (b *Builder) SizeWH(w, h int) *Builder {
	b.buf = append(b.buf, gs, 0x21, byte(((w-1)<<4)|(h-1)))
	return b
}

type Font byte

const (
	FontA Font = 0
	FontB Font = 1
)

func (b *Builder) FontSelect(f Font) *Builder {
	b.buf = append(b.buf, esc, 0x4d, byte(f))
	return b
}

func (b *Builder) LineSpacing(dots byte) *Builder {
	b.buf = append(b.buf, esc, 0x33, dots)
	return b
}

func (b *Builder) CharSpacing(dots byte) *Builder {
	b.buf = append(b.buf, esc, 0x20, dots)
	return b
}

func (b *Builder) CodePage(page byte) *Builder {
	b.buf = append(b.buf, esc, 0x74, page)
	return b
}

func (b *Builder) Bold(enabled bool) *Builder {
	b.buf = append(b.buf, esc, 0x45, boolByte(enabled))
	return b
}

func (b *Builder) Underline(enabled bool) *Builder {
	b.buf = append(b.buf, esc, 0x2d, boolByte(enabled))
	return b
}

func (b *Builder) Inverse(enabled bool) *Builder {
	b.buf = append(b.buf, gs, 0x42, boolByte(enabled))
	return b
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

func (b *Builder) DrawLine(ch byte) *Builder {
	line := strings.Repeat(string(ch), int(b.paperWidth))
	return b.Text(line).NewLine()
}

func (b *Builder) Barcode(data string, kind BarcodeType) *Builder {
	b.buf = append(b.buf, gs, 0x68, 80)
	b.buf = append(b.buf, gs, 0x77, 2)
	b.buf = append(b.buf, gs, 0x6b, byte(kind), byte(len(data)))
	b.buf = append(b.buf, data...)
	return b
}

// QRCode emits a model-2 QR code of the given module size; the printer
// performs the actual symbol encoding, as in the source implementation.
func (b *Builder) QRCode(data string, size byte) *Builder {
	n := len(data) + 3
	pl := byte(n % 256)
	ph := byte(n / 256)

	b.buf = append(b.buf, gs, 0x28, 0x6b, 0x04, 0x00, 0x31, 0x41, 0x32, 0x00)
	b.buf = append(b.buf, gs, 0x28, 0x6b, 0x03, 0x00, 0x31, 0x43, size)
	b.buf = append(b.buf, gs, 0x28, 0x6b, 0x03, 0x00, 0x31, 0x45, 0x31)
	b.buf = append(b.buf, gs, 0x28, 0x6b, pl, ph, 0x31, 0x50, 0x30)
	b.buf = append(b.buf, data...)
	b.buf = append(b.buf, gs, 0x28, 0x6b, 0x03, 0x00, 0x31, 0x51, 0x30)
	return b
}

func (b *Builder) Cut(partial bool) *Builder {
	b.Feed(3)
	b.buf = append(b.buf, gs, 0x56, boolByte(partial))
	return b
}

type DrawerPin byte

const (
	DrawerPin2 DrawerPin = 0
	DrawerPin5 DrawerPin = 1
)

// OpenDrawer pulses the named drawer-kick pin; onMS/offMS are halved
// per the ESC/POS unit (each unit is 2ms).
func (b *Builder) OpenDrawer(pin DrawerPin, onMS, offMS int) *Builder {
	b.buf = append(b.buf, esc, 0x70, byte(pin), byte(onMS/2), byte(offMS/2))
	return b
}

func (b *Builder) CenterText(text string) *Builder {
	padding := (int(b.paperWidth) - len(text)) / 2
	if padding < 0 {
		padding = 0
	}
	return b.Text(strings.Repeat(" ", padding) + text).NewLine()
}

func (b *Builder) JustifyText(left, right string) *Builder {
	spaces := int(b.paperWidth) - len(left) - len(right)
	if spaces < 1 {
		spaces = 1
	}
	return b.Text(left + strings.Repeat(" ", spaces) + right).NewLine()
}

// TableRow renders columns with auto or explicit widths, truncating to
// paper width.
func (b *Builder) TableRow(columns []string, widths []int) *Builder {
	if widths == nil {
		col := int(b.paperWidth) / len(columns)
		widths = make([]int, len(columns))
		for i := range widths {
			widths[i] = col
		}
	}

	var row strings.Builder
	for i, col := range columns {
		width := 0
		if i < len(widths) {
			width = widths[i]
		}
		if len(col) > width {
			row.WriteString(col[:width])
		} else {
			row.WriteString(col)
			row.WriteString(strings.Repeat(" ", width-len(col)))
		}
	}

	out := row.String()
	if len(out) > int(b.paperWidth) {
		out = out[:b.paperWidth]
	}
	return b.Text(out).NewLine()
}
