package student

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	students []Student
}

func (m *memStore) List(context.Context) ([]Student, error) {
	return append([]Student(nil), m.students...), nil
}

func (m *memStore) FindByCard(_ context.Context, cardID string) (*Student, error) {
	for i := range m.students {
		if m.students[i].CardID == cardID {
			cp := m.students[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) Insert(_ context.Context, st Student) (Student, error) {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	m.students = append(m.students, st)
	return st, nil
}

func (m *memStore) InsertMany(ctx context.Context, sts []Student) ([]Student, error) {
	out := make([]Student, 0, len(sts))
	for _, st := range sts {
		created, err := m.Insert(ctx, st)
		if err != nil {
			return nil, err
		}
		out = append(out, created)
	}
	return out, nil
}

func (m *memStore) Update(_ context.Context, id string, st Student) (Student, error) {
	for i := range m.students {
		if m.students[i].ID == id {
			st.ID = id
			st.CreatedAt = m.students[i].CreatedAt
			m.students[i] = st
			return st, nil
		}
	}
	return Student{}, ErrNotFound
}

func (m *memStore) Delete(_ context.Context, id string) error {
	for i := range m.students {
		if m.students[i].ID == id {
			m.students = append(m.students[:i], m.students[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func TestByCard(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&memStore{})

	_, err := svc.ByCard(ctx, "CARD-X")
	assert.ErrorIs(t, err, ErrNotFound)

	added, err := svc.Add(ctx, Student{RollNumber: "101", CardID: "CARD-X", Name: "Asha Rao", Branch: "CSE"})
	require.NoError(t, err)

	got, err := svc.ByCard(ctx, "CARD-X")
	require.NoError(t, err)
	assert.Equal(t, added.ID, got.ID)
	assert.Equal(t, "Asha Rao", got.Name)
}

func TestAddValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&memStore{})

	_, err := svc.Add(ctx, Student{Name: "No Roll"})
	assert.Error(t, err)

	_, err = svc.AddMany(ctx, nil)
	assert.Error(t, err)

	_, err = svc.AddMany(ctx, []Student{
		{RollNumber: "101", CardID: "A", Name: "ok", Branch: "CSE"},
		{Name: "missing ids"},
	})
	assert.Error(t, err)
}

func TestAddManyAndList(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&memStore{})

	created, err := svc.AddMany(ctx, []Student{
		{RollNumber: "101", CardID: "A", Name: "Asha", Branch: "CSE"},
		{RollNumber: "102", CardID: "B", Name: "Ben", Branch: "ECE"},
	})
	require.NoError(t, err)
	assert.Len(t, created, 2)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&memStore{})

	_, err := svc.Update(ctx, "missing", Student{})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "missing"), ErrNotFound)

	added, err := svc.Add(ctx, Student{RollNumber: "101", CardID: "A", Name: "Asha", Branch: "CSE"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, added.ID, Student{RollNumber: "101", CardID: "A", Name: "Asha Rao", Branch: "CSE"})
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", updated.Name)

	require.NoError(t, svc.Delete(ctx, added.ID))
	_, err = svc.ByCard(ctx, "A")
	assert.ErrorIs(t, err, ErrNotFound)
}
