package examination

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/examreport/internal/platform/db"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DefaultStorageTimeout bounds a single repository call.
const DefaultStorageTimeout = 5 * time.Second

var (
	fieldColumns = StorageKeys()
	recordCols   = buildRecordCols()
	insertSQL    = buildInsertSQL()
)

func buildRecordCols() string {
	cols := make([]string, 0, len(fieldColumns)+4)
	cols = append(cols, "pid")
	for _, c := range fieldColumns {
		cols = append(cols, pgx.Identifier{c}.Sanitize())
	}
	cols = append(cols, "photo", "cap_dt", "created_at")
	return strings.Join(cols, ", ")
}

func buildInsertSQL() string {
	n := len(fieldColumns) + 4
	params := make([]string, n)
	for i := range params {
		params[i] = "$" + strconv.Itoa(i+1)
	}
	return "INSERT INTO patient_records (" + recordCols + ") VALUES (" + strings.Join(params, ", ") + ")"
}

type recordRepoPG struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

func NewRecordRepo(pool *pgxpool.Pool, timeout time.Duration) RecordRepository {
	if timeout <= 0 {
		timeout = DefaultStorageTimeout
	}
	return &recordRepoPG{pool: pool, timeout: timeout}
}

func (r *recordRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *recordRepoPG) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *recordRepoPG) Exists(ctx context.Context, pid string) (bool, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM patient_ids WHERE pid = $1)
		    OR EXISTS (SELECT 1 FROM patient_records WHERE pid = $1)`, pid).Scan(&exists)
	if err != nil {
		return false, &StorageError{Op: "exists", Err: err}
	}
	return exists, nil
}

func (r *recordRepoPG) Reserve(ctx context.Context, pid string) error {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO patient_ids (pid, issued_at) VALUES ($1, $2)`, pid, time.Now().UTC())
	if db.IsUniqueViolation(err) {
		return ErrIDTaken
	}
	if err != nil {
		return &StorageError{Op: "reserve", Err: err}
	}
	return nil
}

// Insert stores rec and reserves its ID in one transaction, so IDs chosen
// outside the issuer are never handed out later.
func (r *recordRepoPG) Insert(ctx context.Context, rec *Record) error {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	err := db.InTx(ctx, r.pool, func(ctx context.Context) error {
		q := r.conn(ctx)
		if _, err := q.Exec(ctx, `
			INSERT INTO patient_ids (pid, issued_at) VALUES ($1, $2)
			ON CONFLICT (pid) DO NOTHING`, rec.PatientID, rec.CreatedAt); err != nil {
			return err
		}
		_, err := q.Exec(ctx, insertSQL, recordArgs(rec)...)
		return err
	})
	if db.IsUniqueViolation(err) {
		return &StorageError{Op: "insert", Err: ErrDuplicateRecord}
	}
	if err != nil {
		return &StorageError{Op: "insert", Err: err}
	}
	return nil
}

func (r *recordRepoPG) Get(ctx context.Context, pid string) (*Record, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	rec, err := scanRecord(r.conn(ctx).QueryRow(ctx,
		`SELECT `+recordCols+` FROM patient_records WHERE pid = $1`, pid))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "get", Err: err}
	}
	return rec, nil
}

func (r *recordRepoPG) List(ctx context.Context, limit, offset int) ([]*Record, int, error) {
	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	ctx, cancel := r.bounded(ctx)
	defer cancel()

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+recordCols+` FROM patient_records ORDER BY pid DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, &StorageError{Op: "list", Err: err}
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, &StorageError{Op: "list", Err: err}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, &StorageError{Op: "list", Err: err}
	}
	return out, total, nil
}

func (r *recordRepoPG) Count(ctx context.Context) (int, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient_records`).Scan(&total); err != nil {
		return 0, &StorageError{Op: "count", Err: err}
	}
	return total, nil
}

func (r *recordRepoPG) DeleteAll(ctx context.Context) (int64, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient_records`)
	if err != nil {
		return 0, &StorageError{Op: "delete", Err: err}
	}
	return tag.RowsAffected(), nil
}

func recordArgs(rec *Record) []any {
	args := make([]any, 0, len(fieldColumns)+4)
	args = append(args, rec.PatientID)
	for _, c := range fieldColumns {
		args = append(args, rec.Fields[c])
	}
	var photo []byte
	if len(rec.Photo) > 0 {
		photo = rec.Photo
	}
	return append(args, photo, rec.CapturedAt, rec.CreatedAt)
}

func scanRecord(row pgx.Row) (*Record, error) {
	values := make([]*string, len(fieldColumns))
	var (
		rec   Record
		photo []byte
	)
	dest := make([]any, 0, len(fieldColumns)+4)
	dest = append(dest, &rec.PatientID)
	for i := range values {
		dest = append(dest, &values[i])
	}
	dest = append(dest, &photo, &rec.CapturedAt, &rec.CreatedAt)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	rec.Fields = make(Mapped, len(fieldColumns))
	for i, c := range fieldColumns {
		if values[i] != nil {
			rec.Fields[c] = *values[i]
		} else {
			rec.Fields[c] = ""
		}
	}
	if len(photo) > 0 {
		rec.Photo = photo
	}
	return &rec, nil
}
