package backlog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/amtly/amtly/internal/db"
	"github.com/amtly/amtly/internal/language"
	"github.com/amtly/amtly/internal/router"
	"github.com/amtly/amtly/internal/synth"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func degraded(target router.Target, answer string) router.Response {
	return router.Response{
		Answer:      answer,
		Language:    language.English,
		Decision:    router.Decision{Target: target},
		Route:       router.TargetFallback,
		MessageType: router.MessageChat,
		Degraded:    true,
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		resp   router.Response
		want   Reason
		wantOK bool
	}{
		{"grounded answer", router.Response{Answer: "ok", Route: router.TargetSemantic}, "", false},
		{"semantic miss", degraded(router.TargetSemantic, "general answer"), ReasonNoSources, true},
		{"form miss", degraded(router.TargetForm, "general answer"), ReasonFormMiss, true},
		{"apology", degraded(router.TargetSemantic, synth.Apology(language.English)), ReasonUnanswered, true},
		{"document turn", func() router.Response {
			r := degraded(router.TargetSemantic, synth.Apology(language.English))
			r.MessageType = router.MessageDocument
			return r
		}(), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(tt.resp)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Classify() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"What is Mehrbedarf?":        "what is mehrbedarf",
		"  what   is\tMehrbedarf ?! ": "what is mehrbedarf",
		"Wer zahlt die Miete.":       "wer zahlt die miete",
		"???":                        "",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAddCountsRepeats(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first, err := store.Add(ctx, Gap{Question: "What is Mehrbedarf?", Reason: ReasonNoSources, Language: "en"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if first.Status != StatusOpen || first.Occurrences != 1 {
		t.Errorf("unexpected new gap: %+v", first)
	}

	second, err := store.Add(ctx, Gap{Question: "what is  mehrbedarf", Reason: ReasonUnanswered})
	if err != nil {
		t.Fatalf("Add repeat: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("repeat should reuse gap %s, got %s", first.ID, second.ID)
	}
	if second.Occurrences != 2 {
		t.Errorf("occurrences = %d, want 2", second.Occurrences)
	}
	if second.Reason != ReasonUnanswered {
		t.Errorf("reason should follow the latest turn, got %q", second.Reason)
	}
	if second.Question != "What is Mehrbedarf?" {
		t.Errorf("original wording should be kept, got %q", second.Question)
	}
}

func TestAddEmptyQuestion(t *testing.T) {
	store := setupTestStore(t)
	if _, err := store.Add(context.Background(), Gap{Question: " ? "}); err == nil {
		t.Error("expected error for empty question")
	}
}

func TestAnswerAndReopen(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	g, err := store.Add(ctx, Gap{Question: "Does the Jobcenter pay for a washing machine?", Reason: ReasonNoSources})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := store.Answer(ctx, g.ID, "Only as a one-off need (Erstausstattung).", "editor"); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	answered, err := store.Get(ctx, g.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if answered.Status != StatusAnswered || answered.AnsweredBy != "editor" || answered.AnsweredAt == nil {
		t.Errorf("unexpected answered gap: %+v", answered)
	}

	reopened, err := store.Add(ctx, Gap{Question: g.Question, Reason: ReasonNoSources})
	if err != nil {
		t.Fatalf("Add repeat: %v", err)
	}
	if reopened.Status != StatusOpen {
		t.Errorf("repeat of an answered gap should reopen it, got %s", reopened.Status)
	}
	if reopened.Answer == "" {
		t.Error("reopening should keep the previous answer")
	}
}

func TestRetiredStaysRetired(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	g, _ := store.Add(ctx, Gap{Question: "hello?", Reason: ReasonNoSources})
	if err := store.UpdateStatus(ctx, g.ID, StatusRetired); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	again, err := store.Add(ctx, Gap{Question: "Hello", Reason: ReasonNoSources})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if again.Status != StatusRetired || again.Occurrences != 1 {
		t.Errorf("retired gap changed: %+v", again)
	}
}

func TestRecord(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	grounded := router.Response{Answer: "Field 17 is your IBAN.", Route: router.TargetForm}
	if err := store.Record(ctx, "chat-1", "What is field 17?", grounded); err != nil {
		t.Fatalf("Record: %v", err)
	}
	miss := degraded(router.TargetForm, "I could not find that field.")
	miss.FormCode = "HA"
	if err := store.Record(ctx, "chat-1", "What is HA field 99?", miss); err != nil {
		t.Fatalf("Record: %v", err)
	}

	gaps, err := store.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(gaps) != 1 {
		t.Fatalf("expected only the degraded turn, got %d gaps", len(gaps))
	}
	g := gaps[0]
	if g.Reason != ReasonFormMiss || g.FormCode != "HA" || g.ChatID != "chat-1" || g.Language != "en" {
		t.Errorf("unexpected gap: %+v", g)
	}
}

func TestListOrderingAndFilters(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	store.Add(ctx, Gap{Question: "rare question", Reason: ReasonNoSources})
	for i := 0; i < 3; i++ {
		store.Add(ctx, Gap{Question: "frequent question", Reason: ReasonNoSources, FormCode: "KDU"})
	}
	failed, _ := store.Add(ctx, Gap{Question: "broken question", Reason: ReasonUnanswered})
	store.UpdateStatus(ctx, failed.ID, StatusRetired)

	open, err := store.List(ctx, ListFilter{Status: StatusOpen})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("expected 2 open gaps, got %d", len(open))
	}
	if open[0].Question != "frequent question" || open[0].Occurrences != 3 {
		t.Errorf("most frequent gap should come first, got %+v", open[0])
	}

	kdu, _ := store.List(ctx, ListFilter{FormCode: "kdu"})
	if len(kdu) != 1 {
		t.Errorf("form filter: expected 1 gap, got %d", len(kdu))
	}
	unanswered, _ := store.List(ctx, ListFilter{Reason: ReasonUnanswered})
	if len(unanswered) != 1 {
		t.Errorf("reason filter: expected 1 gap, got %d", len(unanswered))
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[StatusOpen] != 2 || stats[StatusRetired] != 1 || stats[StatusAnswered] != 0 {
		t.Errorf("unexpected stats: %v", stats)
	}
}

func TestUnknownGap(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get: expected ErrNotFound, got %v", err)
	}
	if err := store.Answer(ctx, "missing", "x", "y"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Answer: expected ErrNotFound, got %v", err)
	}
	if err := store.UpdateStatus(ctx, "missing", StatusOpen); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateStatus: expected ErrNotFound, got %v", err)
	}
	if err := store.UpdateStatus(ctx, "missing", "bogus"); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateStatus: expected invalid status error, got %v", err)
	}
}

func TestRoutes(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	g, _ := store.Add(ctx, Gap{Question: "Who pays the Kaution?", Reason: ReasonNoSources})

	r := chi.NewRouter()
	RegisterRoutes(r, store)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := do(http.MethodGet, "/api/backlog/?status=open", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list: status %d", w.Code)
	}
	var list struct {
		Gaps []Gap `json:"gaps"`
	}
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Gaps) != 1 || list.Gaps[0].ID != g.ID {
		t.Errorf("unexpected list: %+v", list.Gaps)
	}

	if w := do(http.MethodGet, "/api/backlog/missing", ""); w.Code != http.StatusNotFound {
		t.Errorf("get missing: status %d", w.Code)
	} else if !strings.Contains(w.Body.String(), `"code":"not_found"`) {
		t.Errorf("get missing: body %s", w.Body.String())
	}

	if w := do(http.MethodPost, "/api/backlog/"+g.ID+"/answer", `{"answer":""}`); w.Code != http.StatusBadRequest {
		t.Errorf("empty answer: status %d", w.Code)
	}
	if w := do(http.MethodPost, "/api/backlog/"+g.ID+"/answer", `{"answer":"Usually as a loan."}`); w.Code != http.StatusOK {
		t.Errorf("answer: status %d", w.Code)
	}
	got, _ := store.Get(ctx, g.ID)
	if got.Status != StatusAnswered || got.AnsweredBy != "anonymous" {
		t.Errorf("answer not stored: %+v", got)
	}

	if w := do(http.MethodPut, "/api/backlog/"+g.ID+"/status", `{"status":"done"}`); w.Code != http.StatusBadRequest {
		t.Errorf("bad status: status %d", w.Code)
	}
	if w := do(http.MethodPut, "/api/backlog/"+g.ID+"/status", `{"status":"retired"}`); w.Code != http.StatusOK {
		t.Errorf("retire: status %d", w.Code)
	}

	w = do(http.MethodGet, "/api/backlog/stats", "")
	var stats map[Status]int
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats[StatusRetired] != 1 {
		t.Errorf("unexpected stats: %v", stats)
	}
}
