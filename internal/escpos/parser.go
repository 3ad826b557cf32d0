package escpos

// Style captures the text attributes in effect when a Text element was
// emitted.
type Style struct {
	Bold      bool
	Underline bool
	Inverse   bool
	Size      TextSize
}

// Element is one parsed unit of an ESC/POS byte stream.
type Element interface{ isElement() }

type TextElement struct {
	Content   string
	Style     Style
	Alignment Alignment
}

type FeedElement struct{ Lines int }

type CutElement struct{ Partial bool }

func (TextElement) isElement() {}
func (FeedElement) isElement() {}
func (CutElement) isElement()  {}

// Parse walks an ESC/POS byte stream and returns the ordered element
// sequence only; it does not report a paper width. It is the inverse of
// Builder for the initialize/text/feed/new_line/align/size/bold/
// underline/inverse/cut subset the kitchen-receipt and test-print
// templates use. It never panics: truncated or unknown sequences are
// skipped, producing fewer elements than a perfect inverse would.
func Parse(data []byte) []Element {
	var elems []Element
	var textRun []byte
	style := Style{}
	align := AlignLeft

	flush := func() {
		if len(textRun) > 0 {
			elems = append(elems, TextElement{Content: string(textRun), Style: style, Alignment: align})
			textRun = nil
		}
	}

	i := 0
	for i < len(data) {
		b := data[i]
		switch b {
		case esc:
			if i+1 >= len(data) {
				i = len(data)
				break
			}
			op := data[i+1]
			switch op {
			case 0x40: // initialize
				flush()
				style = Style{}
				align = AlignLeft
				i += 2
			case 0x61: // align
				if i+2 >= len(data) {
					i = len(data)
					break
				}
				flush()
				align = Alignment(data[i+2])
				i += 3
			case 0x45: // bold
				if i+2 >= len(data) {
					i = len(data)
					break
				}
				flush()
				style.Bold = data[i+2] != 0
				i += 3
			case 0x2d: // underline
				if i+2 >= len(data) {
					i = len(data)
					break
				}
				flush()
				style.Underline = data[i+2] != 0
				i += 3
			case 0x4d: // font select
				i += 3
			case 0x33, 0x20, 0x74: // line spacing / char spacing / code page
				i += 3
			case 0x70: // open drawer: ESC p pin on off
				i += 5
			default:
				// unknown ESC opcode: assume a single operand byte
				i += 3
			}
		case gs:
			if i+1 >= len(data) {
				i = len(data)
				break
			}
			op := data[i+1]
			switch op {
			case 0x21: // size
				if i+2 >= len(data) {
					i = len(data)
					break
				}
				flush()
				style.Size = TextSize(data[i+2])
				i += 3
			case 0x42: // inverse
				if i+2 >= len(data) {
					i = len(data)
					break
				}
				flush()
				style.Inverse = data[i+2] != 0
				i += 3
			case 0x56: // cut
				if i+2 >= len(data) {
					i = len(data)
					break
				}
				flush()
				elems = append(elems, CutElement{Partial: data[i+2] != 0})
				i += 3
			case 0x68, 0x77: // barcode height / width
				i += 3
			case 0x6b: // barcode print or QR store/print (length-prefixed)
				i = parseGSk(data, i)
			case 0x28: // QR framed commands: GS ( k pL pH ...
				i = parseGSParen(data, i)
			case 0x76: // raster image: GS v 0 m xL xH yL yH <data>
				i = parseRaster(data, i)
			default:
				i += 2
			}
		case lf:
			flush()
			elems = append(elems, FeedElement{Lines: 1})
			i++
		case cr:
			// part of CRLF new_line; consumed alongside the following LF
			i++
		default:
			textRun = append(textRun, b)
			i++
		}
	}
	flush()
	return elems
}

// parseGSk handles GS k {type} {len} {data} (barcode).
func parseGSk(data []byte, i int) int {
	if i+3 >= len(data) {
		return len(data)
	}
	n := int(data[i+3])
	end := i + 4 + n
	if end > len(data) {
		return len(data)
	}
	return end
}

// parseGSParen handles the family of GS ( k pL pH fn ... commands used
// for QR code model/size/error-correction/store/print, each of which
// is length-prefixed by (pL, pH).
func parseGSParen(data []byte, i int) int {
	if i+5 >= len(data) {
		return len(data)
	}
	pL, pH := int(data[i+3]), int(data[i+4])
	n := pL + pH*256
	end := i + 5 + n
	if end > len(data) {
		return len(data)
	}
	return end
}

// parseRaster handles GS v 0 m xL xH yL yH followed by byte_width*height bytes.
func parseRaster(data []byte, i int) int {
	if i+7 >= len(data) {
		return len(data)
	}
	xL, xH := int(data[i+4]), int(data[i+5])
	yL, yH := int(data[i+6]), int(data[i+7])
	byteWidth := xL + xH*256
	height := yL + yH*256
	end := i + 8 + byteWidth*height
	if end > len(data) {
		return len(data)
	}
	return end
}
