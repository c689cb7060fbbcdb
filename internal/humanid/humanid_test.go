package humanid

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "rentdesk/pkg/errors"
	"rentdesk/pkg/logger"
)

// fakeCounterStore mimics the atomic counter with seeding from existing
// references, entirely in memory.
type fakeCounterStore struct {
	mu       sync.Mutex
	counters map[string]int64
	existing map[Table][]string
	failWith error
}

func newFakeCounterStore() *fakeCounterStore {
	return &fakeCounterStore{
		counters: make(map[string]int64),
		existing: make(map[Table][]string),
	}
}

func (s *fakeCounterStore) NextSequence(_ context.Context, table Table, year int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return 0, s.failWith
	}

	key := counterKey(table, year)
	if _, ok := s.counters[key]; !ok {
		var last int64
		for _, ref := range s.existing[table] {
			if y, seq, ok := Parse(ref); ok && y == year && seq > last {
				last = seq
			}
		}
		s.counters[key] = last
	}

	s.counters[key]++
	return s.counters[key], nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Service: "humanid-test"})
}

func TestGenerator_SequentialReferences(t *testing.T) {
	store := newFakeCounterStore()
	store.existing[TableRentRequests] = []string{"2025/0007"}
	gen := NewGenerator(store, testLogger())

	ref, err := gen.Next(context.Background(), TableRentRequests, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	if ref != "2025/0008" {
		t.Errorf("ref = %q, want 2025/0008", ref)
	}

	// A fresh year starts at 1 regardless of prior years.
	ref, err = gen.Next(context.Background(), TableRentRequests, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	if ref != "2026/0001" {
		t.Errorf("ref = %q, want 2026/0001", ref)
	}
}

func TestGenerator_TablesCountIndependently(t *testing.T) {
	store := newFakeCounterStore()
	gen := NewGenerator(store, testLogger())
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	quoteRef, _ := gen.Next(context.Background(), TableContactQuotes, now)
	rentRef, _ := gen.Next(context.Background(), TableRentRequests, now)

	if quoteRef != "2025/0001" || rentRef != "2025/0001" {
		t.Errorf("expected both tables to start at 0001, got quote=%q rent=%q", quoteRef, rentRef)
	}
}

func TestGenerator_ConcurrentCallsProduceDistinctReferences(t *testing.T) {
	store := newFakeCounterStore()
	gen := NewGenerator(store, testLogger())
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	const callers = 50
	refs := make(chan string, callers)
	var wg sync.WaitGroup

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ref, err := gen.Next(context.Background(), TableRentRequests, now)
			if err != nil {
				t.Errorf("Next returned error: %v", err)
				return
			}
			refs <- ref
		}()
	}

	wg.Wait()
	close(refs)

	seen := make(map[string]bool)
	for ref := range refs {
		if seen[ref] {
			t.Errorf("duplicate reference assigned: %q", ref)
		}
		seen[ref] = true
	}
	if len(seen) != callers {
		t.Errorf("expected %d distinct references, got %d", callers, len(seen))
	}
}

func TestGenerator_StoreFailureIsRecoverable(t *testing.T) {
	store := newFakeCounterStore()
	store.failWith = errors.New("connection refused")
	gen := NewGenerator(store, testLogger())

	ref, err := gen.Next(context.Background(), TableRentRequests, time.Now())
	if err == nil {
		t.Fatalf("expected error, got ref %q", ref)
	}
	if ref != "" {
		t.Errorf("ref = %q, want empty on failure", ref)
	}

	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeUnavailable {
		t.Errorf("error code = %s, want %s", appErr.Code, apperrors.CodeUnavailable)
	}
}

func TestFormat_PadsAndGrows(t *testing.T) {
	tests := []struct {
		year int
		seq  int64
		want string
	}{
		{2025, 1, "2025/0001"},
		{2025, 42, "2025/0042"},
		{2025, 9999, "2025/9999"},
		{2025, 10000, "2025/10000"},
	}

	for _, tt := range tests {
		if got := Format(tt.year, tt.seq); got != tt.want {
			t.Errorf("Format(%d, %d) = %q, want %q", tt.year, tt.seq, got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		ref      string
		wantYear int
		wantSeq  int64
		wantOK   bool
	}{
		{"2025/0008", 2025, 8, true},
		{"2025/10001", 2025, 10001, true},
		{"2025-0008", 0, 0, false},
		{"abcd/0008", 0, 0, false},
		{"2025/", 0, 0, false},
		{"2025/xyz", 0, 0, false},
		{"", 0, 0, false},
	}

	for _, tt := range tests {
		year, seq, ok := Parse(tt.ref)
		if ok != tt.wantOK || year != tt.wantYear || seq != tt.wantSeq {
			t.Errorf("Parse(%q) = (%d, %d, %v), want (%d, %d, %v)",
				tt.ref, year, seq, ok, tt.wantYear, tt.wantSeq, tt.wantOK)
		}
	}
}
