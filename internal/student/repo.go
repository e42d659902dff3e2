package student

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is reported when a referenced student does not exist.
var ErrNotFound = errors.New("student not found")

// Student is one roster entry. Attendance records take a snapshot of these
// fields at swipe time, so edits here never rewrite past visits.
type Student struct {
	ID         string    `json:"id"`
	RollNumber string    `json:"roll_number"`
	CardID     string    `json:"card_id"`
	Name       string    `json:"name"`
	Branch     string    `json:"branch"`
	Mobile     string    `json:"mobile,omitempty"`
	Email      string    `json:"email,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store is the persistence boundary for the roster.
type Store interface {
	List(ctx context.Context) ([]Student, error)
	FindByCard(ctx context.Context, cardID string) (*Student, error)
	Insert(ctx context.Context, st Student) (Student, error)
	InsertMany(ctx context.Context, sts []Student) ([]Student, error)
	Update(ctx context.Context, id string, st Student) (Student, error)
	Delete(ctx context.Context, id string) error
}

// Repository persists roster entries in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const studentColumns = `id, roll_number, card_id, name, branch, mobile, email, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (Student, error) {
	var st Student
	var mobile, email sql.NullString
	err := row.Scan(&st.ID, &st.RollNumber, &st.CardID, &st.Name, &st.Branch, &mobile, &email, &st.CreatedAt)
	if err != nil {
		return Student{}, err
	}
	st.Mobile = mobile.String
	st.Email = email.String
	return st, nil
}

// List returns the full roster ordered by roll number.
func (r *Repository) List(ctx context.Context) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+studentColumns+` FROM students ORDER BY roll_number
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, st)
	}
	return res, rows.Err()
}

// FindByCard resolves a card identifier to its roster entry, nil when unknown.
func (r *Repository) FindByCard(ctx context.Context, cardID string) (*Student, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+studentColumns+` FROM students WHERE card_id = $1
	`, cardID)
	st, err := scanStudent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &st, nil
}

// Insert adds one student.
func (r *Repository) Insert(ctx context.Context, st Student) (Student, error) {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (id, roll_number, card_id, name, branch, mobile, email)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at
	`, st.ID, st.RollNumber, st.CardID, st.Name, st.Branch, st.Mobile, st.Email)
	if err := row.Scan(&st.CreatedAt); err != nil {
		return Student{}, err
	}
	return st, nil
}

// InsertMany adds a batch of students in one transaction; either the whole
// batch lands or none of it does.
func (r *Repository) InsertMany(ctx context.Context, sts []Student) ([]Student, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	out := make([]Student, 0, len(sts))
	for _, st := range sts {
		if st.ID == "" {
			st.ID = uuid.NewString()
		}
		row := tx.QueryRowContext(ctx, `
			INSERT INTO students (id, roll_number, card_id, name, branch, mobile, email)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			RETURNING created_at
		`, st.ID, st.RollNumber, st.CardID, st.Name, st.Branch, st.Mobile, st.Email)
		if err := row.Scan(&st.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update replaces the editable fields of one student.
func (r *Repository) Update(ctx context.Context, id string, st Student) (Student, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE students
		SET roll_number = $2, card_id = $3, name = $4, branch = $5, mobile = $6, email = $7
		WHERE id = $1
		RETURNING `+studentColumns, id, st.RollNumber, st.CardID, st.Name, st.Branch, st.Mobile, st.Email)
	updated, err := scanStudent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Student{}, ErrNotFound
		}
		return Student{}, err
	}
	return updated, nil
}

// Delete removes one student from the roster. Past attendance records keep
// their snapshot of the deleted entry.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
