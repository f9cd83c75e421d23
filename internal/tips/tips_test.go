package tips

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type boomReader struct{}

func (boomReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

const sample = `# Tips

Intro line that is not a bullet.

## Stress
- Box breathing: in for 4, hold 4,
  out 4, hold 4.
- Name five things you can see.

## Sleep
1. Dim the lights an hour before bed.

| Situation | Tip |
|---|:--:|
| exam | study in short blocks |
`

func TestParse_BulletsHeadingsContinuationAndTables(t *testing.T) {
	l, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var got []Tip
	for _, e := range l.entries {
		got = append(got, e.tip)
	}
	want := []Tip{
		{Category: "Tips", Text: "Intro line that is not a bullet."},
		{Category: "Stress", Text: "Box breathing: in for 4, hold 4, out 4, hold 4."},
		{Category: "Stress", Text: "Name five things you can see."},
		{Category: "Sleep", Text: "Dim the lights an hour before bed."},
		{Category: "Sleep", Text: "Situation Tip"},
		{Category: "Sleep", Text: "exam study in short blocks"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d tips: %+v", len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tip %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParse_ReaderError(t *testing.T) {
	if _, err := Parse(boomReader{}); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestLoad_FileAndMissing(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tips.md")
	if err := os.WriteFile(p, []byte(sample), 0o600); err != nil {
		t.Fatal(err)
	}
	l, err := Load(p)
	if err != nil || l.Len() != 6 {
		t.Fatalf("Load: %v len=%d", err, l.Len())
	}
	if _, err := Load(filepath.Join(t.TempDir(), "nope.md")); err == nil {
		t.Fatalf("missing file should error")
	}
}

func TestTopK_RanksByJaccardWithCategory(t *testing.T) {
	l := New([]Tip{
		{Category: "Sleep", Text: "Dim the lights before bed."},
		{Category: "Stress", Text: "Try box breathing for one minute."},
		{Category: "Stress", Text: "Breathing slowly helps when stressed about an exam tomorrow."},
	})

	rs := l.TopK("I can't sleep", 3)
	if len(rs) != 1 || rs[0].Category != "Sleep" {
		t.Fatalf("sleep query: %+v", rs)
	}

	rs = l.TopK("box breathing", 2)
	if len(rs) != 2 || !strings.HasPrefix(rs[0].Text, "Try box") {
		t.Fatalf("breathing query: %+v", rs)
	}
	if rs[0].Score <= rs[1].Score {
		t.Fatalf("scores not descending: %+v", rs)
	}

	if rs := l.TopK("the and of", 3); rs != nil {
		t.Fatalf("stopword-only query should return nil: %+v", rs)
	}
	if rs := l.TopK("STRESS", 0); len(rs) != 2 {
		t.Fatalf("k<=0 defaults to 3 and matching is case-insensitive: %+v", rs)
	}
}

func TestTopK_TieBreaksShorterThenLexical(t *testing.T) {
	l := New([]Tip{
		{Text: "walk longer route"},
		{Text: "walk route"},
		{Text: "walk plan"},
	})
	rs := l.TopK("walk", 3)
	if len(rs) != 3 {
		t.Fatalf("len=%d", len(rs))
	}
	if rs[0].Text != "walk plan" || rs[1].Text != "walk route" || rs[2].Text != "walk longer route" {
		t.Fatalf("order: %+v", rs)
	}
}

func TestSuggest(t *testing.T) {
	var empty *Library
	if _, ok := empty.Suggest("x"); ok {
		t.Fatalf("nil library must not suggest")
	}

	l := New([]Tip{{Text: "first tip"}, {Text: "drink water"}, {Text: "   "}})
	if l.Len() != 2 {
		t.Fatalf("blank tip kept: %d", l.Len())
	}
	if tip, ok := l.Suggest("water please"); !ok || tip.Text != "drink water" {
		t.Fatalf("match: %+v", tip)
	}
	if tip, ok := l.Suggest("zzz"); !ok || tip.Text != "first tip" {
		t.Fatalf("fallback: %+v", tip)
	}
}

func TestShippedTipsFileParses(t *testing.T) {
	l, err := Load(filepath.Join("..", "..", "data", "tips.md"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if l.Len() < 10 {
		t.Fatalf("expected a populated tips file, got %d", l.Len())
	}
	if tip, _ := l.Suggest("feeling stress and anxiety"); tip.Category != "Stress and anxiety" {
		t.Fatalf("stress query matched %+v", tip)
	}
}
