package window

import (
	"strings"

	"github.com/DmitryBarskov/klippings/internal/normalizer"
)

// Unit is the kind of text unit a context window is counted in.
type Unit string

const (
	UnitLine     Unit = "line"
	UnitSentence Unit = "sentence"
)

// ParseUnit validates a configuration value, defaulting to lines.
func ParseUnit(s string) Unit {
	if Unit(strings.ToLower(s)) == UnitSentence {
		return UnitSentence
	}
	return UnitLine
}

// Windower extracts up to N complete units of original text on either side
// of a matched span. Windows truncate at the book's boundaries and never
// split a unit.
type Windower struct {
	unit Unit
	size int
}

func NewWindower(unit Unit, size int) *Windower {
	if size < 0 {
		size = 0
	}
	return &Windower{unit: unit, size: size}
}

// Extract translates a normalized-space span back into the original text
// via the offset map and collects the surrounding units. The matched span
// itself is not included; the caller renders it separately.
func (w *Windower) Extract(raw string, norm *normalizer.Normalized, offset, length int) (before, after string) {
	if raw == "" || norm == nil || w.size == 0 {
		return "", ""
	}

	start := norm.OrigOffset(offset)
	end := norm.OrigOffset(offset + length)
	if start > len(raw) {
		start = len(raw)
	}
	if end > len(raw) {
		end = len(raw)
	}

	b := start
	for i := 0; i <= w.size && b > 0; i++ {
		b = w.prevUnitStart(raw, b)
		if i < w.size && b > 0 {
			b-- // step over the boundary into the previous unit
		}
	}

	a := end
	for i := 0; i <= w.size && a < len(raw); i++ {
		a = w.nextUnitEnd(raw, a)
		if i < w.size && a < len(raw) {
			a++ // step over the boundary into the next unit
		}
	}

	return strings.TrimSpace(raw[b:start]), strings.TrimSpace(raw[end:a])
}

// prevUnitStart returns the offset of the start of the unit containing or
// preceding pos.
func (w *Windower) prevUnitStart(raw string, pos int) int {
	switch w.unit {
	case UnitSentence:
		return prevSentenceStart(raw, pos)
	default:
		return prevLineStart(raw, pos)
	}
}

// nextUnitEnd returns the offset just past the content of the unit
// containing or following pos, excluding its terminator.
func (w *Windower) nextUnitEnd(raw string, pos int) int {
	switch w.unit {
	case UnitSentence:
		return nextSentenceEnd(raw, pos)
	default:
		return nextLineEnd(raw, pos)
	}
}

func prevLineStart(raw string, pos int) int {
	if i := strings.LastIndexByte(raw[:pos], '\n'); i >= 0 {
		return i + 1
	}
	return 0
}

func nextLineEnd(raw string, pos int) int {
	if i := strings.IndexByte(raw[pos:], '\n'); i >= 0 {
		return pos + i
	}
	return len(raw)
}

// Sentence boundaries are terminators (. ! ?) followed by whitespace. This
// is deliberately naive; abbreviations over-split, which only makes windows
// slightly smaller, never broken.
func isSentenceTerminator(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

func prevSentenceStart(raw string, pos int) int {
	// Scan backward for a terminator followed by whitespace, then skip the
	// whitespace forward to the sentence start.
	for i := pos - 1; i > 0; i-- {
		if isSentenceTerminator(raw[i-1]) && isSpace(raw[i]) {
			j := i
			for j < pos && isSpace(raw[j]) {
				j++
			}
			return j
		}
	}
	return 0
}

func nextSentenceEnd(raw string, pos int) int {
	for i := pos; i < len(raw); i++ {
		if isSentenceTerminator(raw[i]) && (i+1 == len(raw) || isSpace(raw[i+1])) {
			return i + 1
		}
	}
	return len(raw)
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\r' || b == '\t'
}
