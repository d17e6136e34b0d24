// ABOUTME: Typed entity store over a Backend, owning ids and timestamps
// ABOUTME: Hands out copies and applies read-modify-write updates atomically per record
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/salesdesk/models"
)

// Clock issues strictly increasing UTC timestamps.
type Clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC()
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}

type Store struct {
	backend Backend
	clock   *Clock
}

type Option func(*Store)

// WithClock replaces the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.clock = NewClock(now) }
}

func New(backend Backend, opts ...Option) *Store {
	s := &Store{backend: backend, clock: NewClock(nil)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Close() error {
	return s.backend.Close()
}

type record[T any] interface {
	*T
	models.Record
}

func create[T any, P record[T]](ctx context.Context, s *Store, kind string, rec P) error {
	meta := rec.GetMeta()
	meta.ID = uuid.New()
	now := s.clock.Now()
	meta.CreatedAt = now
	meta.UpdatedAt = now

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", kind, err)
	}
	if err := s.backend.Insert(ctx, kind, meta.ID, data); err != nil {
		return fmt.Errorf("failed to insert %s: %w", kind, err)
	}
	return nil
}

func update[T any, P record[T]](ctx context.Context, s *Store, kind string, id uuid.UUID, fn func(P) error) (T, error) {
	var out T
	err := s.backend.Update(ctx, kind, id, func(current []byte) ([]byte, error) {
		var v T
		p := P(&v)
		if err := json.Unmarshal(current, p); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", kind, err)
		}
		orig := *p.GetMeta()
		if err := fn(p); err != nil {
			return nil, err
		}
		meta := p.GetMeta()
		meta.ID = orig.ID
		meta.CreatedAt = orig.CreatedAt
		meta.UpdatedAt = s.clock.Now()

		data, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", kind, err)
		}
		out = v
		return data, nil
	})
	if errors.Is(err, ErrRecordNotFound) {
		return out, models.NotFound(kind, id)
	}
	return out, err
}

func get[T any, P record[T]](ctx context.Context, s *Store, kind string, id uuid.UUID) (T, error) {
	var v T
	data, err := s.backend.Get(ctx, kind, id)
	if errors.Is(err, ErrRecordNotFound) {
		return v, models.NotFound(kind, id)
	}
	if err != nil {
		return v, fmt.Errorf("failed to get %s: %w", kind, err)
	}
	if err := json.Unmarshal(data, P(&v)); err != nil {
		return v, fmt.Errorf("failed to decode %s: %w", kind, err)
	}
	return v, nil
}

func list[T any, P record[T]](ctx context.Context, s *Store, kind string) ([]T, error) {
	rows, err := s.backend.List(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}
	out := make([]T, len(rows))
	for i, data := range rows {
		if err := json.Unmarshal(data, P(&out[i])); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", kind, err)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := P(&out[i]).GetMeta(), P(&out[j]).GetMeta()
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
	return out, nil
}

func (s *Store) CreateContact(ctx context.Context, c *models.Contact) error {
	return create(ctx, s, KindContact, c)
}

func (s *Store) UpdateContact(ctx context.Context, id uuid.UUID, fn func(*models.Contact) error) (models.Contact, error) {
	return update(ctx, s, KindContact, id, fn)
}

func (s *Store) GetContact(ctx context.Context, id uuid.UUID) (models.Contact, error) {
	return get[models.Contact](ctx, s, KindContact, id)
}

func (s *Store) ListContacts(ctx context.Context) ([]models.Contact, error) {
	return list[models.Contact](ctx, s, KindContact)
}

func (s *Store) CreateDeal(ctx context.Context, d *models.Deal) error {
	return create(ctx, s, KindDeal, d)
}

func (s *Store) UpdateDeal(ctx context.Context, id uuid.UUID, fn func(*models.Deal) error) (models.Deal, error) {
	return update(ctx, s, KindDeal, id, fn)
}

func (s *Store) GetDeal(ctx context.Context, id uuid.UUID) (models.Deal, error) {
	return get[models.Deal](ctx, s, KindDeal, id)
}

func (s *Store) ListDeals(ctx context.Context) ([]models.Deal, error) {
	return list[models.Deal](ctx, s, KindDeal)
}

func (s *Store) CreateTask(ctx context.Context, t *models.Task) error {
	return create(ctx, s, KindTask, t)
}

func (s *Store) UpdateTask(ctx context.Context, id uuid.UUID, fn func(*models.Task) error) (models.Task, error) {
	return update(ctx, s, KindTask, id, fn)
}

func (s *Store) GetTask(ctx context.Context, id uuid.UUID) (models.Task, error) {
	return get[models.Task](ctx, s, KindTask, id)
}

func (s *Store) ListTasks(ctx context.Context) ([]models.Task, error) {
	return list[models.Task](ctx, s, KindTask)
}

func (s *Store) CreateInquiry(ctx context.Context, q *models.Inquiry) error {
	return create(ctx, s, KindInquiry, q)
}

func (s *Store) UpdateInquiry(ctx context.Context, id uuid.UUID, fn func(*models.Inquiry) error) (models.Inquiry, error) {
	return update(ctx, s, KindInquiry, id, fn)
}

func (s *Store) GetInquiry(ctx context.Context, id uuid.UUID) (models.Inquiry, error) {
	return get[models.Inquiry](ctx, s, KindInquiry, id)
}

func (s *Store) ListInquiries(ctx context.Context) ([]models.Inquiry, error) {
	return list[models.Inquiry](ctx, s, KindInquiry)
}
