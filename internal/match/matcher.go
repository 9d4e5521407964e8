package match

import (
	"strings"

	"github.com/DmitryBarskov/klippings/internal/normalizer"
)

// Confidence classifies how a passage was located in its book.
type Confidence string

const (
	Exact    Confidence = "exact"
	Fuzzy    Confidence = "fuzzy"
	NotFound Confidence = "not_found"
)

// Result is the outcome of matching one clip against one book. Offset and
// Length are in normalized-text bytes and only meaningful when Confidence
// is not NotFound.
type Result struct {
	Offset     int
	Length     int
	Confidence Confidence
	Score      float64 // similarity of the accepted window, 1.0 for exact
}

// LocationHint is a clip's device location range; the zero value means the
// clip carried none. MaxLocation is the largest location seen among the
// book's clips, zero when unknown; it lets the estimate scale to the book
// instead of assuming a fixed byte count per location.
type LocationHint struct {
	Start       int
	End         int
	MaxLocation int
}

func (h LocationHint) present() bool { return h.Start > 0 }

// Kindle locations are roughly 128 bytes of book text apiece. Fallback
// scale when no MaxLocation is available; the estimate is only used to
// bias occurrence choice and to bound the fuzzy search, so rough is fine.
const bytesPerLocation = 128

// DefaultThreshold is the minimum similarity for accepting a fuzzy window.
const DefaultThreshold = 0.75

// Matcher locates normalized clip content inside normalized book text.
type Matcher struct {
	threshold float64
}

func NewMatcher(threshold float64) *Matcher {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Matcher{threshold: threshold}
}

// Match tries an exact substring search first; when the content occurs more
// than once, a present location hint picks the occurrence nearest the
// estimated position, otherwise the lowest offset wins. Failing that, a
// fuzzy sliding-window search over the hint neighborhood (or the whole
// book) accepts the best window above the threshold.
func (m *Matcher) Match(content string, hint LocationHint, book *normalizer.Normalized) Result {
	if content == "" || book == nil || book.Text == "" {
		return Result{Confidence: NotFound}
	}

	if offsets := allOccurrences(book.Text, content); len(offsets) > 0 {
		offset := offsets[0]
		if len(offsets) > 1 && hint.present() {
			offset = nearestTo(offsets, estimatePosition(hint, len(book.Text)))
		}
		return Result{Offset: offset, Length: len(content), Confidence: Exact, Score: 1.0}
	}

	return m.fuzzyMatch(content, hint, book.Text)
}

func allOccurrences(haystack, needle string) []int {
	var offsets []int
	from := 0
	for {
		i := strings.Index(haystack[from:], needle)
		if i < 0 {
			return offsets
		}
		offsets = append(offsets, from+i)
		from += i + 1
	}
}

// estimatePosition maps a device location onto a byte position, clamped to
// the text. With a known largest location the position interpolates
// linearly against it; otherwise a flat per-location byte count has to do.
func estimatePosition(hint LocationHint, textLen int) int {
	var est int
	if hint.MaxLocation > 0 {
		est = int(float64(hint.Start) / float64(hint.MaxLocation) * float64(textLen))
	} else {
		est = hint.Start * bytesPerLocation
	}
	if est > textLen {
		est = textLen
	}
	return est
}

func nearestTo(offsets []int, target int) int {
	best := offsets[0]
	bestDist := abs(best - target)
	for _, o := range offsets[1:] {
		if d := abs(o - target); d < bestDist {
			best, bestDist = o, d
		}
	}
	return best
}

func (m *Matcher) fuzzyMatch(content string, hint LocationHint, text string) Result {
	lo, hi := 0, len(text)
	if hint.present() {
		// Restrict the scan to a generous neighborhood of the estimate.
		est := estimatePosition(hint, len(text))
		radius := len(text) / 10
		if floor := 4 * len(content); radius < floor {
			radius = floor
		}
		lo, hi = est-radius, est+radius
		if lo < 0 {
			lo = 0
		}
		if hi > len(text) {
			hi = len(text)
		}
	}

	window := len(content)
	if hi-lo < window {
		lo, hi = 0, len(text)
		if len(text) < window {
			return Result{Confidence: NotFound}
		}
	}

	// Coarse scan with a quarter-window step, then a fine scan around the
	// best coarse position.
	step := window / 4
	if step < 1 {
		step = 1
	}
	bestOffset, bestScore := -1, 0.0
	for i := lo; i+window <= hi; i += step {
		if s := similarity(content, text[i:i+window]); s > bestScore {
			bestOffset, bestScore = i, s
		}
	}
	if bestOffset < 0 {
		return Result{Confidence: NotFound}
	}

	fineLo, fineHi := bestOffset-step, bestOffset+step
	if fineLo < lo {
		fineLo = lo
	}
	if fineHi+window > hi {
		fineHi = hi - window
	}
	for i := fineLo; i <= fineHi; i++ {
		if s := similarity(content, text[i:i+window]); s > bestScore {
			bestOffset, bestScore = i, s
		}
	}

	if bestScore < m.threshold {
		return Result{Confidence: NotFound}
	}
	return Result{Offset: bestOffset, Length: window, Confidence: Fuzzy, Score: bestScore}
}

// similarity is a normalized edit-distance ratio in [0,1].
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(a, b))/float64(longest)
}

// levenshtein computes edit distance with a two-row table.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
