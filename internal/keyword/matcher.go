package keyword

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	brTag      = regexp.MustCompile(`(?i)<br\s*/?>`)
	whitespace = regexp.MustCompile(`\s+`)

	// NFKC first so compatibility forms fold, then decompose to strip
	// combining marks before recomposing.
	foldMarks = transform.Chain(norm.NFKC, norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	// NFKC maps U+2011 to U+2010 before this replacer runs, so the plain
	// typographic hyphen must be folded here too.
	separatorFold = strings.NewReplacer(
		"\u00a0", " ", // non-breaking space
		"\u2010", " ", // hyphen
		"\u2011", " ", // non-breaking hyphen
		"\u2013", " ", // en dash
		"\u2014", " ", // em dash
		"-", " ",
		"_", " ",
		"/", " ",
	)
)

// Normalize prepares text for matching: NFKC, diacritics stripped, hyphen
// and underscore separators folded to spaces, whitespace collapsed,
// case-folded. Idempotent.
func Normalize(text string) string {
	text = brTag.ReplaceAllString(text, " ")
	if folded, _, err := transform.String(foldMarks, text); err == nil {
		text = folded
	}
	text = separatorFold.Replace(text)
	text = whitespace.ReplaceAllString(text, " ")
	return strings.ToLower(strings.TrimSpace(text))
}

// Matcher tests normalized text against a fixed keyword set. Read-only
// after construction, safe for concurrent use.
type Matcher struct {
	keywords []string
	patterns []*regexp.Regexp
}

// NewMatcher compiles whole-word patterns for each keyword. Keywords that
// normalize to nothing are dropped; duplicates (after normalization) keep
// the first spelling.
func NewMatcher(keywords []string) *Matcher {
	m := &Matcher{}
	seen := map[string]struct{}{}
	for _, kw := range keywords {
		normalized := Normalize(kw)
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		m.keywords = append(m.keywords, kw)
		m.patterns = append(m.patterns, compilePattern(normalized))
	}
	return m
}

// Keywords returns the retained keyword spellings in load order.
func (m *Matcher) Keywords() []string {
	out := make([]string, len(m.keywords))
	copy(out, m.keywords)
	return out
}

// Match returns the distinct keywords found in text as whole words or
// contiguous phrases. Never fails; nil when nothing matches.
func (m *Matcher) Match(text string) []string {
	if m == nil || text == "" {
		return nil
	}

	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}

	var found []string
	for i, pattern := range m.patterns {
		if pattern.MatchString(normalized) {
			found = append(found, m.keywords[i])
		}
	}
	return found
}

// Union merges per-column match sets into a distinct any-column set,
// preserving first-seen order.
func Union(sets ...[]string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, set := range sets {
		for _, kw := range set {
			if _, dup := seen[kw]; dup {
				continue
			}
			seen[kw] = struct{}{}
			out = append(out, kw)
		}
	}
	return out
}

// Tokens in multi-word keywords must appear contiguously and in order;
// normalized text uses single spaces, so the literal phrase with \b anchors
// is enough.
func compilePattern(normalized string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(normalized) + `\b`)
}

// LoadFile reads one keyword per line, skipping blanks and #-comments.
func LoadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open keywords file: %w", err)
	}
	defer f.Close()

	var keywords []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keywords = append(keywords, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read keywords file: %w", err)
	}
	return keywords, nil
}
