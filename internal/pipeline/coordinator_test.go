package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/talentsift/catalog-pipeline/internal/catalog"
	"github.com/talentsift/catalog-pipeline/internal/enrich"
	"github.com/talentsift/catalog-pipeline/internal/pipeline"
)

type fakeEnricher struct {
	calls     [][]enrich.Item
	failCalls map[int]error
}

func (f *fakeEnricher) EnrichBatch(ctx context.Context, items []enrich.Item) ([]enrich.Metadata, error) {
	f.calls = append(f.calls, slices.Clone(items))
	if err, ok := f.failCalls[len(f.calls)]; ok {
		return nil, err
	}
	out := make([]enrich.Metadata, len(items))
	for i, it := range items {
		out[i] = enrich.Metadata{
			SkillsCovered:      []string{"skill for " + it.Name},
			AssessmentCategory: "Technical",
		}
	}
	return out, nil
}

type sleepRecorder struct {
	pauses []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.pauses = append(s.pauses, d)
	return ctx.Err()
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStore(t *testing.T, names ...string) *catalog.Store {
	t.Helper()
	records := make([]catalog.Record, len(names))
	for i, n := range names {
		records[i] = catalog.Record{Name: n, Description: "about " + n}
	}
	return catalog.New(filepath.Join(t.TempDir(), "catalog.csv"), records)
}

func TestRunEnrichesAllPending(t *testing.T) {
	store := newStore(t, "A", "B", "C", "D", "E")
	fe := &fakeEnricher{}
	sr := &sleepRecorder{}

	sum, err := pipeline.New(store, fe, discard(), pipeline.Options{
		BatchSize: 3,
		Sleep:     sr.sleep,
	}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sum.BatchesDispatched != 2 || sum.ItemsApplied != 5 || sum.BatchesFailed != 0 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if len(fe.calls) != 2 || len(fe.calls[0]) != 3 || len(fe.calls[1]) != 2 {
		t.Fatalf("unexpected batch shapes: %v", fe.calls)
	}
	if got := store.PendingIndices(); got != nil {
		t.Fatalf("records left pending: %v", got)
	}

	// Reloading the snapshot shows the checkpoint of the final batch.
	reopened, err := catalog.Open(store.Path())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := reopened.PendingIndices(); got != nil {
		t.Fatalf("persisted snapshot still has pending records: %v", got)
	}
}

func TestRunFailedBatchStaysPending(t *testing.T) {
	store := newStore(t, "A", "B", "C", "D", "E")
	fe := &fakeEnricher{failCalls: map[int]error{2: errors.New("response has 1 items, want 2")}}

	sum, err := pipeline.New(store, fe, discard(), pipeline.Options{
		BatchSize: 3,
		Sleep:     (&sleepRecorder{}).sleep,
	}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sum.BatchesDispatched != 2 || sum.BatchesFailed != 1 || sum.ItemsApplied != 3 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if got := store.PendingIndices(); !slices.Equal(got, []int{3, 4}) {
		t.Fatalf("pending after failed batch: %v, want [3 4]", got)
	}
	if sum.PendingAtEnd() != 2 {
		t.Fatalf("PendingAtEnd = %d, want 2", sum.PendingAtEnd())
	}
}

func TestRunSecondPassIsIdempotent(t *testing.T) {
	store := newStore(t, "A", "B", "C")
	fe := &fakeEnricher{}
	opts := pipeline.Options{BatchSize: 3, Sleep: (&sleepRecorder{}).sleep}

	if _, err := pipeline.New(store, fe, discard(), opts).Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first := store.Records()

	sum, err := pipeline.New(store, fe, discard(), opts).Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if sum.BatchesDispatched != 0 || len(fe.calls) != 1 {
		t.Fatalf("fully enriched store should dispatch nothing: %+v", sum)
	}
	if !slices.Equal(store.Records(), first) {
		t.Fatal("second run mutated the store")
	}
}

func TestRunCooldownCadence(t *testing.T) {
	names := make([]string, 12)
	for i := range names {
		names[i] = fmt.Sprintf("R%02d", i)
	}
	store := newStore(t, names...)
	sr := &sleepRecorder{}

	_, err := pipeline.New(store, &fakeEnricher{}, discard(), pipeline.Options{
		BatchSize:     1,
		RequestDelay:  4 * time.Second,
		CooldownEvery: 10,
		Cooldown:      30 * time.Second,
		Sleep:         sr.sleep,
	}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(sr.pauses) != 12 {
		t.Fatalf("got %d pauses, want one per batch", len(sr.pauses))
	}
	for i, p := range sr.pauses {
		want := 4 * time.Second
		if (i+1)%10 == 0 {
			want = 30 * time.Second
		}
		if p != want {
			t.Fatalf("pause after batch %d = %v, want %v", i+1, p, want)
		}
	}
}

type persistFailTable struct {
	*catalog.Store
}

func (persistFailTable) Persist() error { return errors.New("disk full") }

func TestRunPersistFailureAborts(t *testing.T) {
	store := newStore(t, "A", "B", "C", "D")

	sum, err := pipeline.New(persistFailTable{store}, &fakeEnricher{}, discard(), pipeline.Options{
		BatchSize: 2,
		Sleep:     (&sleepRecorder{}).sleep,
	}).Run(context.Background())
	if err == nil {
		t.Fatal("expected checkpoint error")
	}
	if sum.BatchesDispatched != 1 {
		t.Fatalf("run should abort on the first checkpoint failure: %+v", sum)
	}
}

func TestRunStopsOnCanceledContext(t *testing.T) {
	store := newStore(t, "A", "B", "C")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pipeline.New(store, &fakeEnricher{}, discard(), pipeline.Options{
		BatchSize: 1,
		Sleep:     (&sleepRecorder{}).sleep,
	}).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := store.PendingIndices(); len(got) != 3 {
		t.Fatalf("canceled run should apply nothing, pending %v", got)
	}
}
