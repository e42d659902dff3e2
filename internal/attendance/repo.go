package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Store is the persistence boundary for attendance records. The engine talks
// only to this interface; Repository is the Postgres implementation.
type Store interface {
	Insert(ctx context.Context, rec Record) (Record, error)
	FindLatestByCard(ctx context.Context, cardID string) (*Record, error)
	FindAllOpen(ctx context.Context) ([]Record, error)
	FindByID(ctx context.Context, id string) (*Record, error)
	FindByDateKey(ctx context.Context, dateKey string) ([]Record, error)
	List(ctx context.Context, limit, offset int) ([]Record, error)
	// Close stamps out_time and the duration label, but only while the record
	// is still open. It reports ErrAlreadyClosed when another writer got there
	// first and ErrNotFound when the id does not exist.
	Close(ctx context.Context, id string, outTime time.Time, label string) (Record, error)
}

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const recordColumns = `id, roll_number, card_id, name, branch, in_time, out_time, duration, date_key`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var duration sql.NullString
	err := row.Scan(&rec.ID, &rec.RollNumber, &rec.CardID, &rec.Name, &rec.Branch,
		&rec.InTime, &rec.OutTime, &duration, &rec.DateKey)
	if err != nil {
		return Record{}, err
	}
	rec.Duration = duration.String
	return rec, nil
}

// Insert writes a new record. Missing id and date key are filled in from the
// record itself so callers can stay oblivious to storage details.
func (r *Repository) Insert(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.DateKey == "" {
		rec.DateKey = DateKeyFor(rec.InTime)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_records (id, roll_number, card_id, name, branch, in_time, out_time, duration, date_key)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, rec.ID, rec.RollNumber, rec.CardID, rec.Name, rec.Branch, rec.InTime, rec.OutTime, nullable(rec.Duration), rec.DateKey)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// FindLatestByCard returns the most recent record for a card, or nil when the
// card has never been swiped.
func (r *Repository) FindLatestByCard(ctx context.Context, cardID string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE card_id = $1
		ORDER BY in_time DESC, id DESC
		LIMIT 1
	`, cardID)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// FindAllOpen returns every record with no out time, oldest first.
func (r *Repository) FindAllOpen(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE out_time IS NULL
		ORDER BY in_time, id
	`)
	if err != nil {
		return nil, err
	}
	return collectRecords(rows)
}

// FindByID returns a single record, or nil when it does not exist.
func (r *Repository) FindByID(ctx context.Context, id string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM attendance_records WHERE id = $1
	`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// FindByDateKey returns a day's records in a fixed order so reports built on
// top of it are deterministic.
func (r *Repository) FindByDateKey(ctx context.Context, dateKey string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE date_key = $1
		ORDER BY in_time, id
	`, dateKey)
	if err != nil {
		return nil, err
	}
	return collectRecords(rows)
}

// List returns records newest first with basic paging.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance_records
		ORDER BY in_time DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectRecords(rows)
}

// Close is a conditional write: it only succeeds while the record is still
// open, which makes two racing closers resolve to exactly one winner.
func (r *Repository) Close(ctx context.Context, id string, outTime time.Time, label string) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE attendance_records
		SET out_time = $2, duration = $3
		WHERE id = $1 AND out_time IS NULL
		RETURNING `+recordColumns, id, outTime, label)
	rec, err := scanRecord(row)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Record{}, err
	}
	existing, ferr := r.FindByID(ctx, id)
	if ferr != nil {
		return Record{}, ferr
	}
	if existing == nil {
		return Record{}, ErrNotFound
	}
	return Record{}, ErrAlreadyClosed
}

func collectRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()
	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
