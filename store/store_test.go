// ABOUTME: Tests for the typed entity store across memory and badger backends
// ABOUTME: Verifies id and timestamp bookkeeping, atomic updates and not-found handling
package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/salesdesk/models"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	bdg, err := OpenInMemoryBadger()
	require.NoError(t, err)
	t.Cleanup(func() { _ = bdg.Close() })
	return map[string]Backend{
		"memory": NewMemoryBackend(),
		"badger": bdg,
	}
}

func TestCreateAssignsIDAndTimestamps(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := New(backend)

			deal := &models.Deal{Name: "Website", Stage: models.StageProposal, Amount: 250000}
			require.NoError(t, s.CreateDeal(ctx, deal))
			assert.NotEqual(t, uuid.Nil, deal.ID)
			assert.False(t, deal.CreatedAt.IsZero())
			assert.Equal(t, deal.CreatedAt, deal.UpdatedAt)

			got, err := s.GetDeal(ctx, deal.ID)
			require.NoError(t, err)
			assert.Equal(t, "Website", got.Name)
			assert.Equal(t, models.StageProposal, got.Stage)
			assert.True(t, got.CreatedAt.Equal(deal.CreatedAt))
		})
	}
}

func TestUpdateAdvancesUpdatedAt(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			fixed := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
			s := New(backend, WithClock(func() time.Time { return fixed }))

			c := &models.Contact{FirstName: "Jane", LastName: "Smith", Email: "jane@example.com"}
			require.NoError(t, s.CreateContact(ctx, c))

			updated, err := s.UpdateContact(ctx, c.ID, func(c *models.Contact) error {
				c.Phone = "555"
				c.CreatedAt = time.Time{}
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, "555", updated.Phone)
			assert.True(t, updated.UpdatedAt.After(c.UpdatedAt))
			assert.True(t, updated.CreatedAt.Equal(c.CreatedAt))
		})
	}
}

func TestUpdateMutatorErrorWritesNothing(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := New(backend)

			deal := &models.Deal{Name: "Original"}
			require.NoError(t, s.CreateDeal(ctx, deal))

			boom := errors.New("boom")
			_, err := s.UpdateDeal(ctx, deal.ID, func(d *models.Deal) error {
				d.Name = "Changed"
				return boom
			})
			assert.ErrorIs(t, err, boom)

			got, err := s.GetDeal(ctx, deal.ID)
			require.NoError(t, err)
			assert.Equal(t, "Original", got.Name)
			assert.True(t, got.UpdatedAt.Equal(deal.UpdatedAt))
		})
	}
}

func TestUnknownIDIsNotFound(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := New(backend)
			id := uuid.New()

			_, err := s.GetInquiry(ctx, id)
			assert.ErrorIs(t, err, models.ErrNotFound)

			_, err = s.UpdateTask(ctx, id, func(*models.Task) error { return nil })
			var nf *models.NotFoundError
			require.ErrorAs(t, err, &nf)
			assert.Equal(t, KindTask, nf.Kind)
			assert.Equal(t, id, nf.ID)
		})
	}
}

func TestListOrderedByCreation(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := New(backend)

			var ids []uuid.UUID
			for _, title := range []string{"one", "two", "three", "four"} {
				task := &models.Task{Title: title, Status: models.TaskTodo}
				require.NoError(t, s.CreateTask(ctx, task))
				ids = append(ids, task.ID)
			}

			tasks, err := s.ListTasks(ctx)
			require.NoError(t, err)
			require.Len(t, tasks, 4)
			for i, task := range tasks {
				assert.Equal(t, ids[i], task.ID)
			}
		})
	}
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend())

	c := &models.Contact{FirstName: "A", LastName: "B", Email: "a@b.com", Tags: []string{"vip"}}
	require.NoError(t, s.CreateContact(ctx, c))

	got, err := s.GetContact(ctx, c.ID)
	require.NoError(t, err)
	got.Tags[0] = "changed"
	got.Email = "other@b.com"

	again, err := s.GetContact(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", again.Email)
	assert.Equal(t, []string{"vip"}, again.Tags)
}

func TestConcurrentUpdatesAreAtomic(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := New(backend)

			deal := &models.Deal{Name: "counter"}
			require.NoError(t, s.CreateDeal(ctx, deal))

			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := s.UpdateDeal(ctx, deal.ID, func(d *models.Deal) error {
						d.Amount++
						return nil
					})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			got, err := s.GetDeal(ctx, deal.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(20), got.Amount)
		})
	}
}

func TestClockIsStrictlyMonotonic(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewClock(func() time.Time { return fixed })
	prev := clock.Now()
	for i := 0; i < 100; i++ {
		next := clock.Now()
		require.True(t, next.After(prev))
		prev = next
	}
}

func TestTaskRelationSurvivesStorage(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := New(backend)
			contactID := uuid.New()

			task := &models.Task{Title: "Call", Status: models.TaskTodo, Related: models.ContactRef{ID: contactID}}
			require.NoError(t, s.CreateTask(ctx, task))

			got, err := s.GetTask(ctx, task.ID)
			require.NoError(t, err)
			assert.Equal(t, models.ContactRef{ID: contactID}, got.Related)
		})
	}
}
