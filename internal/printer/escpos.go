// Package printer renders kitchen order tickets as ESC/POS byte streams and
// delivers them to network thermal printers.
package printer

import (
	"bytes"
	"strings"
)

// ESC/POS control bytes
const (
	ESC byte = 0x1B
	GS  byte = 0x1D
	NL  byte = 0x0A
)

// LineWidth is the character width of an 80mm printer in font A.
const LineWidth = 42

type align byte

const (
	alignLeft   align = 0
	alignCenter align = 1
	alignRight  align = 2
)

// encoder accumulates an ESC/POS job.
type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) init() {
	e.buf.Write([]byte{ESC, '@'})
}

func (e *encoder) setAlign(a align) {
	e.buf.Write([]byte{ESC, 'a', byte(a)})
}

func (e *encoder) setEmphasize(on bool) {
	var v byte
	if on {
		v = 1
	}
	e.buf.Write([]byte{ESC, 'E', v})
}

// setSize scales glyphs; width and height are 1..8.
func (e *encoder) setSize(width, height byte) {
	e.buf.Write([]byte{GS, '!', ((width - 1) << 4) | (height - 1)})
}

func (e *encoder) cut() {
	e.buf.Write([]byte{GS, 'V', 66, 0})
}

func (e *encoder) write(text string) {
	e.buf.WriteString(toASCII(text))
}

func (e *encoder) writeln(text string) {
	e.write(text)
	e.buf.WriteByte(NL)
}

func (e *encoder) lineFeed() {
	e.buf.WriteByte(NL)
}

func (e *encoder) separator() {
	e.writeln(strings.Repeat("=", LineWidth))
}

func (e *encoder) bytes() []byte {
	return e.buf.Bytes()
}

var asciiFold = map[rune]string{
	'á': "a", 'à': "a", 'â': "a", 'ä': "a", 'ã': "a",
	'Á': "A", 'À': "A", 'Â': "A", 'Ä': "A", 'Ã': "A",
	'é': "e", 'è': "e", 'ê': "e", 'ë': "e",
	'É': "E", 'È': "E", 'Ê': "E", 'Ë': "E",
	'í': "i", 'ì': "i", 'î': "i", 'ï': "i",
	'Í': "I", 'Ì': "I", 'Î': "I", 'Ï': "I",
	'ó': "o", 'ò': "o", 'ô': "o", 'ö': "o", 'õ': "o",
	'Ó': "O", 'Ò': "O", 'Ô': "O", 'Ö': "O", 'Õ': "O",
	'ú': "u", 'ù': "u", 'û': "u", 'ü': "u",
	'Ú': "U", 'Ù': "U", 'Û': "U", 'Ü': "U",
	'ñ': "n", 'Ñ': "N", 'ç': "c", 'Ç': "C",
	'₹': "Rs", '€': "EUR", '–': "-", '—': "-",
	'‘': "'", '’': "'", '“': "\"", '”': "\"",
}

// toASCII folds text onto the printer's base code page. Anything without a
// mapping prints as '?'.
func toASCII(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r < 0x80:
			b.WriteRune(r)
		default:
			if s, ok := asciiFold[r]; ok {
				b.WriteString(s)
			} else {
				b.WriteByte('?')
			}
		}
	}
	return b.String()
}
