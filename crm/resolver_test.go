// ABOUTME: Tests for contact identity resolution
// ABOUTME: Case-insensitive dedup, derived full names, validation and serialized writes
package crm

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/salesdesk/models"
	"github.com/harperreed/salesdesk/store"
)

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	svc := New(store.New(store.NewMemoryBackend()), opts...)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func str(s string) *string { return &s }

func contactInput(first, last, email string) ContactInput {
	return ContactInput{FirstName: str(first), LastName: str(last), Email: str(email)}
}

func TestContactDedupScenario(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	first, err := svc.SaveContact(ctx, contactInput("Ada", "Lovelace", "a@x.com"), uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", first.FullName)

	_, err = svc.SaveContact(ctx, contactInput("Other", "Person", "A@X.com"), uuid.Nil)
	var conflict *models.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, first.ID, conflict.Existing.ID)
	assert.ErrorIs(t, err, models.ErrConflict)

	edited, err := svc.SaveContact(ctx, ContactInput{Phone: str("555-0100")}, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "555-0100", edited.Phone)
	assert.Equal(t, "a@x.com", edited.Email)

	contacts, err := svc.ListContacts(ctx)
	require.NoError(t, err)
	assert.Len(t, contacts, 1)
}

func TestEditToOwnEmailIsNotConflict(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	c, err := svc.SaveContact(ctx, contactInput("Jane", "Smith", "jane@example.com"), uuid.Nil)
	require.NoError(t, err)

	edited, err := svc.SaveContact(ctx, ContactInput{Email: str("JANE@example.com")}, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "JANE@example.com", edited.Email)
}

func TestEditToAnotherContactsEmailConflicts(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	a, err := svc.SaveContact(ctx, contactInput("A", "One", "a@example.com"), uuid.Nil)
	require.NoError(t, err)
	b, err := svc.SaveContact(ctx, contactInput("B", "Two", "b@example.com"), uuid.Nil)
	require.NoError(t, err)

	_, err = svc.SaveContact(ctx, ContactInput{Email: str(" A@Example.com "), Phone: str("1")}, b.ID)
	var conflict *models.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, a.ID, conflict.Existing.ID)

	unchanged, err := svc.GetContact(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", unchanged.Email)
	assert.Empty(t, unchanged.Phone)
}

func TestFullNameFollowsNameEdits(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	c, err := svc.SaveContact(ctx, contactInput("John", "Doe", "john@example.com"), uuid.Nil)
	require.NoError(t, err)

	c, err = svc.SaveContact(ctx, ContactInput{LastName: str("Smith")}, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "John Smith", c.FullName)

	c, err = svc.SaveContact(ctx, ContactInput{FirstName: str("Jack")}, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jack Smith", c.FullName)
}

func TestSaveContactDefaultsAndTags(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	in := contactInput("Dana", "Cohen", "dana@example.com")
	in.Tags = &[]string{"vip", " vip ", "Qualified"}
	c, err := svc.SaveContact(ctx, in, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, models.ContactNew, c.Status)
	assert.Equal(t, models.SourceOther, c.Source)
	assert.Equal(t, []string{"vip", "Qualified"}, c.Tags)
	assert.NotEqual(t, uuid.Nil, c.ID)
}

func TestSaveContactValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	bad := models.ContactSource("Billboard")

	tests := map[string]ContactInput{
		"missing email":   {FirstName: str("A"), LastName: str("B")},
		"missing first":   {LastName: str("B"), Email: str("a@b.com")},
		"blank last":      {FirstName: str("A"), LastName: str("  "), Email: str("a@b.com")},
		"malformed email": contactInput("A", "B", "not-an-email"),
		"display name":    contactInput("A", "B", "Ann <a@b.com>"),
		"bad source":      {FirstName: str("A"), LastName: str("B"), Email: str("a@b.com"), Source: &bad},
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.SaveContact(ctx, in, uuid.Nil)
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}

	contacts, err := svc.ListContacts(ctx)
	require.NoError(t, err)
	assert.Empty(t, contacts)
}

func TestSaveContactUnknownID(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.SaveContact(context.Background(), ContactInput{Phone: str("1")}, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestConcurrentCreatesWithSameEmail(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	const attempts = 16
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			email := "race@example.com"
			if i%2 == 1 {
				email = "RACE@example.com"
			}
			_, errs[i] = svc.SaveContact(ctx, contactInput("R", "Ace", email), uuid.Nil)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.ErrorIs(t, err, models.ErrConflict)
	}
	assert.Equal(t, 1, successes)

	found, ok, err := svc.FindContactByEmail(ctx, "Race@Example.com")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "R Ace", found.FullName)
}
