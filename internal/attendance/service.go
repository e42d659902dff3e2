package attendance

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Service owns the swipe toggle, bulk recovery, manual close, and day
// reporting on top of a Store. All session state lives in the store; the
// service reconstructs it on every call.
type Service struct {
	store Store
	now   func() time.Time

	mu    sync.Mutex
	cards map[string]*sync.Mutex
}

// NewService creates a service. A nil clock defaults to UTC wall time;
// tests inject a fixed one.
func NewService(store Store, now func() time.Time) *Service {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{store: store, now: now, cards: make(map[string]*sync.Mutex)}
}

// cardLock returns the mutex guarding one card's toggle. Locks are keyed per
// card so swipes of unrelated cards never serialize against each other.
func (s *Service) cardLock(cardID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.cards[cardID]
	if !ok {
		l = &sync.Mutex{}
		s.cards[cardID] = l
	}
	return l
}

// Swipe toggles the session for one card: it opens a new record when the card
// has no record yet or its latest one is closed, and closes the open one
// otherwise. Exactly one record is created or mutated per call.
func (s *Service) Swipe(ctx context.Context, cardID string, snap Snapshot) (Record, error) {
	if cardID == "" {
		return Record{}, errors.New("card id required")
	}
	lock := s.cardLock(cardID)
	lock.Lock()
	defer lock.Unlock()

	latest, err := s.store.FindLatestByCard(ctx, cardID)
	if err != nil {
		return Record{}, err
	}
	now := s.now()
	if latest == nil || !latest.Open() {
		rec := Record{
			RollNumber: snap.RollNumber,
			CardID:     cardID,
			Name:       snap.Name,
			Branch:     snap.Branch,
			InTime:     now,
			DateKey:    DateKeyFor(now),
		}
		return s.store.Insert(ctx, rec)
	}
	return s.store.Close(ctx, latest.ID, now, DurationLabel(latest.InTime, &now, now))
}

// ForceOutAll closes every open session with one captured instant so the
// resulting durations are directly comparable. Sessions opened after the
// capture are left alone. Returns how many records were closed.
func (s *Service) ForceOutAll(ctx context.Context) (int, error) {
	now := s.now()
	open, err := s.store.FindAllOpen(ctx)
	if err != nil {
		return 0, err
	}
	closed := 0
	for _, rec := range open {
		if rec.InTime.After(now) {
			continue
		}
		if _, err := s.store.Close(ctx, rec.ID, now, DurationLabel(rec.InTime, &now, now)); err != nil {
			if errors.Is(err, ErrAlreadyClosed) {
				// a regular swipe-out beat us to this one
				continue
			}
			return closed, err
		}
		closed++
	}
	return closed, nil
}

// CloseByID closes one named open session, bypassing the swipe toggle.
func (s *Service) CloseByID(ctx context.Context, id string) (Record, error) {
	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if rec == nil {
		return Record{}, ErrNotFound
	}
	if !rec.Open() {
		return Record{}, ErrAlreadyClosed
	}
	now := s.now()
	return s.store.Close(ctx, rec.ID, now, DurationLabel(rec.InTime, &now, now))
}

// ReportByDate rolls one day's records into per-person totals. Records are
// partitioned by the day their session opened. Grouping follows store order,
// and the first record seen for a roll number supplies the snapshot fields.
func (s *Service) ReportByDate(ctx context.Context, dateKey string) ([]DaySummary, error) {
	recs, err := s.store.FindByDateKey(ctx, dateKey)
	if err != nil {
		return nil, err
	}
	now := s.now()
	index := make(map[string]int, len(recs))
	summaries := make([]DaySummary, 0, len(recs))
	for _, rec := range recs {
		i, ok := index[rec.RollNumber]
		if !ok {
			i = len(summaries)
			index[rec.RollNumber] = i
			summaries = append(summaries, DaySummary{
				RollNumber: rec.RollNumber,
				CardID:     rec.CardID,
				Name:       rec.Name,
				Branch:     rec.Branch,
			})
		}
		summaries[i].TotalMinutes += CreditMinutes(rec, now)
		summaries[i].Records = append(summaries[i].Records, rec)
	}
	return summaries, nil
}

// Active returns everyone currently inside.
func (s *Service) Active(ctx context.Context) ([]Record, error) {
	return s.store.FindAllOpen(ctx)
}

// List returns raw records with paging, newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Record, error) {
	return s.store.List(ctx, limit, offset)
}
