package examination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxIDAttempts bounds the number of candidates tried per issuance.
const MaxIDAttempts = 5

// ExistsFunc reports whether id is already in use.
type ExistsFunc func(ctx context.Context, id string) (bool, error)

// ReserveFunc atomically claims id. It returns ErrIDTaken when another
// caller holds it already.
type ReserveFunc func(ctx context.Context, id string) error

// Candidate builds an ID of the form PID-YYYYMMDD-xxxxxxxx.
func Candidate(now time.Time) string {
	return "PID-" + now.Format("20060102") + "-" + uuid.NewString()[:8]
}

// Issuer generates patient IDs.
type Issuer struct {
	now       func() time.Time
	candidate func(time.Time) string
}

func NewIssuer() *Issuer {
	return &Issuer{now: time.Now, candidate: Candidate}
}

// Issue returns the first candidate that exists reports as unused. The
// lookup and the later insert are not atomic; prefer Reserve.
func (i *Issuer) Issue(ctx context.Context, exists ExistsFunc) (string, error) {
	for attempt := 0; attempt < MaxIDAttempts; attempt++ {
		id := i.candidate(i.now())
		taken, err := exists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("check patient id: %w", err)
		}
		if !taken {
			return id, nil
		}
	}
	return "", ErrIDExhausted
}

// Reserve claims a fresh candidate through reserve. Only ErrIDTaken leads
// to another attempt.
func (i *Issuer) Reserve(ctx context.Context, reserve ReserveFunc) (string, error) {
	for attempt := 0; attempt < MaxIDAttempts; attempt++ {
		id := i.candidate(i.now())
		err := reserve(ctx, id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, ErrIDTaken) {
			return "", fmt.Errorf("reserve patient id: %w", err)
		}
	}
	return "", ErrIDExhausted
}
