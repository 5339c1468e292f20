package examination

import "context"

// RecordRepository persists examination records and issued patient IDs.
type RecordRepository interface {
	// Exists reports whether pid was issued or stored.
	Exists(ctx context.Context, pid string) (bool, error)
	// Reserve claims pid, returning ErrIDTaken if it is already claimed.
	Reserve(ctx context.Context, pid string) error
	Insert(ctx context.Context, rec *Record) error
	Get(ctx context.Context, pid string) (*Record, error)
	// List returns records most-recent-first by patient ID and the total count.
	List(ctx context.Context, limit, offset int) ([]*Record, int, error)
	Count(ctx context.Context) (int, error)
	// DeleteAll removes stored records. Reservations are kept so IDs are
	// never reissued.
	DeleteAll(ctx context.Context) (int64, error)
}
