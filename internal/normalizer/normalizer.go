package normalizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalized is the canonical comparison form of a text together with a map
// from every normalized byte position back to the byte position in the
// original text it was derived from. The map is monotonic, so a span found
// in normalized space can be sliced back out of the original text.
type Normalized struct {
	Text    string
	offsets []int // len == len(Text)+1
}

// OrigOffset translates a byte offset in the normalized text to the nearest
// byte offset in the original text. Out-of-range inputs are clamped.
func (n *Normalized) OrigOffset(i int) int {
	if i < 0 {
		i = 0
	}
	if i >= len(n.offsets) {
		i = len(n.offsets) - 1
	}
	return n.offsets[i]
}

// Replacements for glyphs that commonly differ between reader-exported text
// and the canonical source.
var runeReplacements = map[rune]string{
	'‘': "'",   // left single quote
	'’': "'",   // right single quote
	'‚': "'",   // low single quote
	'“': `"`,   // left double quote
	'”': `"`,   // right double quote
	'„': `"`,   // low double quote
	'…': "...", // ellipsis
	'–': "-",   // en dash
	'—': "-",   // em dash
	'«': `"`,   // left guillemet
	'»': `"`,   // right guillemet
}

// Zero-width and joiner characters stripped outright.
var strippedRunes = map[rune]bool{
	'\u00ad': true, // soft hyphen
	'\u200b': true, // zero-width space
	'\u200c': true, // zero-width non-joiner
	'\u200d': true, // zero-width joiner
	'\ufeff': true, // BOM / zero-width no-break space
}

// Normalizer folds text into a comparison-friendly canonical form: case
// folded, punctuation variants unified, whitespace runs (including
// hyphenated line wraps) collapsed to single spaces.
type Normalizer struct {
	strip map[rune]bool
}

func New() *Normalizer {
	return &Normalizer{strip: strippedRunes}
}

// NewWithStrip returns a Normalizer that additionally strips the given runes.
func NewWithStrip(extra string) *Normalizer {
	strip := make(map[rune]bool, len(strippedRunes)+len(extra))
	for r := range strippedRunes {
		strip[r] = true
	}
	for _, r := range extra {
		strip[r] = true
	}
	return &Normalizer{strip: strip}
}

// Normalize is idempotent: Normalize(Normalize(s).Text).Text == Normalize(s).Text.
func (nz *Normalizer) Normalize(s string) *Normalized {
	var b strings.Builder
	b.Grow(len(s))
	offsets := make([]int, 0, len(s)+1)

	runes := []rune(s)
	// Byte offset of each rune in the original string.
	pos := make([]int, len(runes)+1)
	{
		p := 0
		for i, r := range runes {
			pos[i] = p
			p += len(string(r))
		}
		pos[len(runes)] = p
	}

	emit := func(str string, origPos int) {
		for j := 0; j < len(str); j++ {
			offsets = append(offsets, origPos)
		}
		b.WriteString(str)
	}

	pendingSpace := false // a collapsed whitespace run waiting to be emitted
	spacePos := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if nz.strip[r] {
			continue
		}

		if unicode.IsSpace(r) {
			if b.Len() > 0 && !pendingSpace {
				pendingSpace = true
				spacePos = pos[i]
			}
			continue
		}

		// A hyphen at a line wrap joins the split word: drop the hyphen and
		// the newline run following it.
		if r == '-' && i+1 < len(runes) && isLineBreak(runes[i+1]) {
			for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				i++
			}
			continue
		}

		if pendingSpace {
			emit(" ", spacePos)
			pendingSpace = false
		}

		if repl, ok := runeReplacements[r]; ok {
			emit(repl, pos[i])
			continue
		}

		folded := strings.ToLower(norm.NFKC.String(string(r)))
		emit(folded, pos[i])
	}

	offsets = append(offsets, len(s))
	return &Normalized{Text: b.String(), offsets: offsets}
}

// Fold returns just the normalized text, for key comparisons where the
// offset map is not needed.
func (nz *Normalizer) Fold(s string) string {
	return nz.Normalize(s).Text
}

func isLineBreak(r rune) bool {
	return r == '\n' || r == '\r'
}
