package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/tbourn/mindmate-backend/internal/domain"
)

func TestHabits_CreateLogAndProgress(t *testing.T) {
	e := newEnv(t)
	tok := e.login(t, "ha")

	w := e.do(t, call{method: http.MethodPost, path: "/habits", token: tok, body: CreateHabitRequest{Name: "  Evening   walk "}})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	var hb domain.Habit
	decode(t, w, &hb)
	if hb.Name != "Evening walk" {
		t.Fatalf("name = %q", hb.Name)
	}
	e.do(t, call{method: http.MethodPost, path: "/habits", token: tok, body: CreateHabitRequest{Name: "water"}})

	today := time.Now().UTC().Format(domain.DateLayout)
	for _, done := range []bool{true, false, true} {
		w = e.do(t, call{method: http.MethodPut, path: "/habits/" + hb.ID + "/logs", token: tok, body: map[string]any{"completed": done}})
		if w.Code != http.StatusOK {
			t.Fatalf("log: %d %s", w.Code, w.Body.String())
		}
	}
	var lg domain.HabitLog
	decode(t, w, &lg)
	if lg.LogDate != today || !lg.Completed {
		t.Fatalf("log = %+v", lg)
	}

	w = e.do(t, call{method: http.MethodGet, path: "/habits", token: tok})
	var list ListHabitsResponse
	decode(t, w, &list)
	if len(list.Habits) != 2 || list.Habits[0].ID != hb.ID {
		t.Fatalf("habits = %+v", list)
	}

	w = e.do(t, call{method: http.MethodGet, path: "/habits/progress", token: tok})
	var prog ProgressResponse
	decode(t, w, &prog)
	if prog.Days != 14 || len(prog.Rows) != 2 {
		t.Fatalf("progress = %+v", prog)
	}
	var walk, water domain.HabitLogRow
	for _, r := range prog.Rows {
		if r.HabitID == hb.ID {
			walk = r
		} else {
			water = r
		}
	}
	if walk.LogDate == nil || *walk.LogDate != today || !*walk.Completed {
		t.Fatalf("walk row = %+v", walk)
	}
	if water.LogDate != nil || water.Completed != nil {
		t.Fatalf("never-logged row should carry nulls: %+v", water)
	}
}

func TestHabits_LogFailures(t *testing.T) {
	e := newEnv(t)
	owner := e.login(t, "hb")
	other := e.login(t, "hc")

	w := e.do(t, call{method: http.MethodPost, path: "/habits", token: owner, body: CreateHabitRequest{Name: "read"}})
	var hb domain.Habit
	decode(t, w, &hb)
	path := "/habits/" + hb.ID + "/logs"

	cases := []struct {
		name   string
		token  string
		path   string
		body   any
		status int
	}{
		{"missing completed", owner, path, map[string]any{"date": "2024-01-01"}, http.StatusBadRequest},
		{"bad date", owner, path, map[string]any{"date": "01/02/2024", "completed": true}, http.StatusBadRequest},
		{"unknown habit", owner, "/habits/nope/logs", map[string]any{"completed": true}, http.StatusNotFound},
		{"foreign habit", other, path, map[string]any{"completed": true}, http.StatusNotFound},
		{"explicit date", owner, path, map[string]any{"date": "2024-01-01", "completed": false}, http.StatusOK},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if w := e.do(t, call{method: http.MethodPut, path: c.path, token: c.token, body: c.body}); w.Code != c.status {
				t.Fatalf("status = %d %s", w.Code, w.Body.String())
			}
		})
	}

	if w := e.do(t, call{method: http.MethodPost, path: "/habits", token: owner, body: CreateHabitRequest{Name: " \t "}}); w.Code != http.StatusBadRequest {
		t.Fatalf("blank habit name = %d", w.Code)
	}
}
