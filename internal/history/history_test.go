package history

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/54b3r/ragviz/internal/generate"
)

// openTestStore opens an in-memory SQLiteStore for use in tests.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRecord(query string) *generate.Record {
	return &generate.Record{
		Backend:          "openai",
		Model:            "gpt-4o",
		Query:            query,
		Answer:           "Paris.",
		PromptTokens:     120,
		CompletionTokens: 5,
		TotalTokens:      125,
		CostUSD:          0.00035,
		DurationMS:       840,
	}
}

func Test_History_AppendAssignsID(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	rec, err := s.Append(ctx, testRecord("q1"))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if rec.ID == 0 {
		t.Error("expected non-zero ID after append")
	}
	if rec.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	rec2, err := s.Append(ctx, testRecord("q2"))
	if err != nil {
		t.Fatalf("append second: %v", err)
	}
	if rec2.ID == rec.ID {
		t.Errorf("expected distinct IDs, both %d", rec.ID)
	}
}

func Test_History_RecentNewestFirst(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, q := range []string{"first", "second", "third"} {
		r := testRecord(q)
		r.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if _, err := s.Append(ctx, r); err != nil {
			t.Fatalf("append %q: %v", q, err)
		}
	}

	recs, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("want 3 records, got %d", len(recs))
	}
	for i, want := range []string{"third", "second", "first"} {
		if recs[i].Query != want {
			t.Errorf("recs[%d].Query = %q, want %q", i, recs[i].Query, want)
		}
	}
}

func Test_History_RecentLimitRespected(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	for range 6 {
		if _, err := s.Append(ctx, testRecord("q")); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	recs, err := s.Recent(ctx, 4)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recs) != 4 {
		t.Errorf("want 4 records, got %d", len(recs))
	}
}

func Test_History_RoundTripFields(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	in := testRecord("round trip")
	in.TokensEstimated = true
	if _, err := s.Append(ctx, in); err != nil {
		t.Fatalf("append: %v", err)
	}

	recs, err := s.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("want 1 record, got %d", len(recs))
	}
	got := recs[0]
	if got.Backend != in.Backend || got.Model != in.Model || got.Query != in.Query || got.Answer != in.Answer {
		t.Errorf("text fields mismatch: %+v", got)
	}
	if got.PromptTokens != in.PromptTokens || got.CompletionTokens != in.CompletionTokens || got.TotalTokens != in.TotalTokens {
		t.Errorf("token fields mismatch: %+v", got)
	}
	if !got.TokensEstimated {
		t.Error("TokensEstimated flag lost in round trip")
	}
	if math.Abs(got.CostUSD-in.CostUSD) > 1e-12 {
		t.Errorf("cost = %v, want %v", got.CostUSD, in.CostUSD)
	}
	if got.DurationMS != in.DurationMS {
		t.Errorf("duration = %d, want %d", got.DurationMS, in.DurationMS)
	}
}

func Test_History_Totals(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	totals, err := s.Totals(ctx)
	if err != nil {
		t.Fatalf("totals empty: %v", err)
	}
	if totals.Calls != 0 || totals.CostUSD != 0 {
		t.Errorf("empty store totals = %+v", totals)
	}

	for range 3 {
		if _, err := s.Append(ctx, testRecord("q")); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	totals, err = s.Totals(ctx)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals.Calls != 3 {
		t.Errorf("calls = %d, want 3", totals.Calls)
	}
	if totals.PromptTokens != 360 || totals.CompletionTokens != 15 {
		t.Errorf("token totals = %d/%d, want 360/15", totals.PromptTokens, totals.CompletionTokens)
	}
	if math.Abs(totals.CostUSD-3*0.00035) > 1e-9 {
		t.Errorf("cost total = %v, want %v", totals.CostUSD, 3*0.00035)
	}
}

func Test_History_EmptyRecentReturnsNil(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	recs, err := s.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent empty: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("want 0 records, got %d", len(recs))
	}
}
