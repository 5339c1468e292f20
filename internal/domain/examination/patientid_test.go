package examination

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"
)

var candidatePattern = regexp.MustCompile(`^PID-\d{8}-[0-9a-f]{8}$`)

func TestCandidate_Format(t *testing.T) {
	now := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	id := Candidate(now)
	if !candidatePattern.MatchString(id) {
		t.Fatalf("unexpected candidate %q", id)
	}
	if id[4:12] != "20240309" {
		t.Errorf("expected date component 20240309, got %s", id[4:12])
	}
}

func TestIssue_Distinct(t *testing.T) {
	issuer := NewIssuer()
	issued := make(map[string]bool)
	exists := func(_ context.Context, id string) (bool, error) { return issued[id], nil }

	for i := 0; i < 200; i++ {
		id, err := issuer.Issue(context.Background(), exists)
		if err != nil {
			t.Fatalf("issue %d: %v", i, err)
		}
		if issued[id] {
			t.Fatalf("duplicate id %s", id)
		}
		issued[id] = true
	}
}

func TestIssue_Exhaustion(t *testing.T) {
	calls := 0
	exists := func(context.Context, string) (bool, error) {
		calls++
		return true, nil
	}

	_, err := NewIssuer().Issue(context.Background(), exists)
	if !errors.Is(err, ErrIDExhausted) {
		t.Fatalf("expected ErrIDExhausted, got %v", err)
	}
	if calls != MaxIDAttempts {
		t.Errorf("expected %d lookups, got %d", MaxIDAttempts, calls)
	}
}

func TestIssue_RetriesThenSucceeds(t *testing.T) {
	issuer := &Issuer{now: time.Now, candidate: sequence("PID-a", "PID-b", "PID-c")}
	taken := map[string]bool{"PID-a": true, "PID-b": true}

	id, err := issuer.Issue(context.Background(), func(_ context.Context, id string) (bool, error) {
		return taken[id], nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "PID-c" {
		t.Errorf("expected PID-c, got %s", id)
	}
}

func TestIssue_LookupErrorAborts(t *testing.T) {
	calls := 0
	boom := errors.New("connection refused")
	_, err := NewIssuer().Issue(context.Background(), func(context.Context, string) (bool, error) {
		calls++
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected lookup error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single lookup, got %d", calls)
	}
}

func TestReserve_ConflictIsOnlyRetrySignal(t *testing.T) {
	calls := 0
	id, err := NewIssuer().Reserve(context.Background(), func(context.Context, string) error {
		calls++
		if calls < 3 {
			return ErrIDTaken
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 || !candidatePattern.MatchString(id) {
		t.Errorf("got id %q after %d calls", id, calls)
	}

	calls = 0
	_, err = NewIssuer().Reserve(context.Background(), func(context.Context, string) error {
		calls++
		return &StorageError{Op: "reserve", Err: errors.New("disk full")}
	})
	var serr *StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected no retry on storage failure, got %d calls", calls)
	}
}

func TestReserve_Exhaustion(t *testing.T) {
	calls := 0
	_, err := NewIssuer().Reserve(context.Background(), func(context.Context, string) error {
		calls++
		return ErrIDTaken
	})
	if !errors.Is(err, ErrIDExhausted) || calls != MaxIDAttempts {
		t.Errorf("expected exhaustion after %d attempts, got %v after %d", MaxIDAttempts, err, calls)
	}
}

func sequence(ids ...string) func(time.Time) string {
	i := 0
	return func(time.Time) string {
		id := ids[i%len(ids)]
		i++
		return id
	}
}
