package student

import (
	"context"
	"errors"
)

// Service coordinates roster operations for the transport layer.
type Service struct {
	store Store
}

// NewService creates a service backed by a store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// List returns the full roster.
func (s *Service) List(ctx context.Context) ([]Student, error) {
	return s.store.List(ctx)
}

// ByCard resolves a card to its roster entry, ErrNotFound when unregistered.
func (s *Service) ByCard(ctx context.Context, cardID string) (Student, error) {
	if cardID == "" {
		return Student{}, errors.New("card id required")
	}
	st, err := s.store.FindByCard(ctx, cardID)
	if err != nil {
		return Student{}, err
	}
	if st == nil {
		return Student{}, ErrNotFound
	}
	return *st, nil
}

// Add registers one student.
func (s *Service) Add(ctx context.Context, st Student) (Student, error) {
	if st.RollNumber == "" || st.CardID == "" {
		return Student{}, errors.New("roll number and card id required")
	}
	return s.store.Insert(ctx, st)
}

// AddMany registers a batch of students atomically.
func (s *Service) AddMany(ctx context.Context, sts []Student) ([]Student, error) {
	if len(sts) == 0 {
		return nil, errors.New("empty batch")
	}
	for _, st := range sts {
		if st.RollNumber == "" || st.CardID == "" {
			return nil, errors.New("roll number and card id required for every entry")
		}
	}
	return s.store.InsertMany(ctx, sts)
}

// Update replaces one student's fields.
func (s *Service) Update(ctx context.Context, id string, st Student) (Student, error) {
	return s.store.Update(ctx, id, st)
}

// Delete removes one student.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}
