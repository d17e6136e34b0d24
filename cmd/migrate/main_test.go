// ABOUTME: Tests for copying records between storage backends
// ABOUTME: Uses the sqlite backend as source and in-memory badger as destination
package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/salesdesk/db"
	"github.com/harperreed/salesdesk/models"
	"github.com/harperreed/salesdesk/store"
)

func TestCopyRecordsPreservesIDs(t *testing.T) {
	ctx := context.Background()

	database, err := db.OpenDatabase(filepath.Join(t.TempDir(), "src.db"))
	require.NoError(t, err)
	src := store.New(db.NewRecordBackend(database))
	defer func() { _ = src.Close() }()

	contact := &models.Contact{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}
	require.NoError(t, src.CreateContact(ctx, contact))
	deal := &models.Deal{Name: "Engine", Stage: models.StageProposal}
	require.NoError(t, src.CreateDeal(ctx, deal))

	badger, err := store.OpenInMemoryBadger()
	require.NoError(t, err)
	dst := store.New(badger)
	defer func() { _ = dst.Close() }()

	counts, err := copyRecords(ctx, db.NewRecordBackend(database), badger)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[store.KindContact].copied)
	assert.Equal(t, 1, counts[store.KindDeal].copied)

	got, err := dst.GetContact(ctx, contact.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got.Email)
	assert.True(t, got.CreatedAt.Equal(contact.CreatedAt))

	counts, err = copyRecords(ctx, db.NewRecordBackend(database), badger)
	require.NoError(t, err)
	assert.Equal(t, 0, counts[store.KindContact].copied)
	assert.Equal(t, 1, counts[store.KindContact].existing)
}

func TestCopyRecordsDryRun(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryBackend()
	s := store.New(mem)
	require.NoError(t, s.CreateTask(ctx, &models.Task{Title: "Call"}))

	counts, err := copyRecords(ctx, mem, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[store.KindTask].copied)
}

func TestParseLocation(t *testing.T) {
	kind, path, err := parseLocation("badger:/tmp/data")
	require.NoError(t, err)
	assert.Equal(t, "badger", kind)
	assert.Equal(t, "/tmp/data", path)

	_, _, err = parseLocation("postgres://x")
	assert.Error(t, err)
}
