// Package tips serves offline coping suggestions from a Markdown file.
//
// The file is a list of bullets grouped under headings:
//
//	## Stress
//	- Box breathing: in for 4, hold 4, out 4, hold 4.
//	- Name five things you can see right now.
//
// Each bullet becomes a Tip tagged with the nearest heading. Table rows are
// flattened into one tip per row; other non-empty lines continue the previous
// bullet. Matching uses Jaccard similarity between the query's token set and
// the tip's (text plus category): score = |Q ∩ T| / |Q ∪ T|.
//
// A Library is immutable after construction and safe for concurrent use.
package tips

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Tip is one suggestion.
type Tip struct {
	Category string
	Text     string
}

// Result is a ranked tip with its similarity score.
type Result struct {
	Tip
	Score float64
}

type entry struct {
	tip    Tip
	tokens map[string]struct{}
}

// Library is a searchable, read-only set of tips.
type Library struct {
	entries []entry
	stop    map[string]struct{}
}

// DefaultStopwords are dropped from queries and tips before scoring.
var DefaultStopwords = []string{
	"a", "an", "and", "are", "as", "at", "be", "but", "by", "for", "i", "if",
	"in", "is", "it", "me", "my", "of", "on", "or", "so", "that", "the",
	"this", "to", "was", "with", "you", "your",
}

// Load reads and parses the Markdown file at path.
func Load(path string) (*Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

var (
	bulletRE  = regexp.MustCompile(`^(?:[-*+]|\d+[.)])\s+`)
	headingRE = regexp.MustCompile(`^#{1,6}\s+`)
)

// Parse builds a Library from Markdown read from r.
func Parse(r io.Reader) (*Library, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		tipsOut  []Tip
		category string
		open     bool // last tip may take continuation lines
	)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			open = false
		case headingRE.MatchString(line):
			category = strings.TrimSpace(headingRE.ReplaceAllString(line, ""))
			open = false
		case bulletRE.MatchString(line):
			tipsOut = append(tipsOut, Tip{Category: category, Text: bulletRE.ReplaceAllString(line, "")})
			open = true
		case strings.HasPrefix(line, "|") && strings.HasSuffix(line, "|"):
			if row := tableRow(line); row != "" {
				tipsOut = append(tipsOut, Tip{Category: category, Text: row})
			}
			open = false
		case open:
			last := &tipsOut[len(tipsOut)-1]
			last.Text += " " + line
		default:
			tipsOut = append(tipsOut, Tip{Category: category, Text: line})
			open = true
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return New(tipsOut), nil
}

// New builds a Library from tips, skipping blank ones.
func New(ts []Tip) *Library {
	l := &Library{stop: make(map[string]struct{}, len(DefaultStopwords))}
	for _, w := range DefaultStopwords {
		l.stop[w] = struct{}{}
	}
	for _, t := range ts {
		t.Text = strings.Join(strings.Fields(t.Text), " ")
		if t.Text == "" {
			continue
		}
		toks := l.tokenize(t.Text + " " + t.Category)
		if len(toks) == 0 {
			continue
		}
		l.entries = append(l.entries, entry{tip: t, tokens: toks})
	}
	return l
}

// Len reports the number of tips.
func (l *Library) Len() int {
	if l == nil {
		return 0
	}
	return len(l.entries)
}

// TopK returns up to k tips ranked by similarity to query. Ties prefer the
// shorter tip, then lexical order. k <= 0 means 3.
func (l *Library) TopK(query string, k int) []Result {
	if l.Len() == 0 {
		return nil
	}
	if k <= 0 {
		k = 3
	}
	q := l.tokenize(query)
	if len(q) == 0 {
		return nil
	}

	out := make([]Result, 0, k)
	for _, e := range l.entries {
		over := overlap(q, e.tokens)
		if over == 0 {
			continue
		}
		score := float64(over) / float64(len(q)+len(e.tokens)-over)
		out = append(out, Result{Tip: e.tip, Score: score})
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		la, lb := utf8.RuneCountInString(out[a].Text), utf8.RuneCountInString(out[b].Text)
		if la != lb {
			return la < lb
		}
		return out[a].Text < out[b].Text
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// Suggest returns the best tip for query, or the first tip in the file when
// nothing matches. ok is false only for an empty library.
func (l *Library) Suggest(query string) (Tip, bool) {
	if l.Len() == 0 {
		return Tip{}, false
	}
	if rs := l.TopK(query, 1); len(rs) > 0 {
		return rs[0].Tip, true
	}
	return l.entries[0].tip, true
}

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*`)

func (l *Library) tokenize(s string) map[string]struct{} {
	words := wordRE.FindAllString(cases.Fold().String(s), -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if _, skip := l.stop[w]; skip {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

// tableRow flattens "| a | b |" into "a b"; separator rows yield "".
func tableRow(line string) string {
	cells := strings.Split(strings.Trim(line, "|"), "|")
	kept := make([]string, 0, len(cells))
	for _, c := range cells {
		c = strings.TrimSpace(c)
		if strings.Trim(c, ":- ") == "" {
			continue
		}
		kept = append(kept, c)
	}
	return strings.Join(kept, " ")
}
