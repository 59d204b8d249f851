package api_keys_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendatahub-io/key-ledger/internal/api_keys"
	"github.com/opendatahub-io/key-ledger/internal/logger"
	"github.com/opendatahub-io/key-ledger/test/fixtures"
)

func createTestService(t *testing.T) *api_keys.Service {
	t.Helper()
	return api_keys.NewService(logger.Nop(), fixtures.NewFileStore(t, 0))
}

func TestServiceAdd(t *testing.T) {
	ctx := context.Background()

	t.Run("NewKeyIsValid", func(t *testing.T) {
		svc := createTestService(t)
		before := time.Now().Add(-time.Second)

		require.NoError(t, svc.Add(ctx, "k1", fixtures.FutureExpiry))

		lookup := svc.Get(ctx, "k1")
		assert.Equal(t, api_keys.StatusValid, lookup.Status)
		require.NotNil(t, lookup.Record)
		assert.Equal(t, fixtures.FutureExpiry, lookup.Record.Expired)
		assert.False(t, lookup.Record.Deleted)

		created, err := time.Parse(time.RFC3339, lookup.Record.CreatedAt)
		require.NoError(t, err)
		assert.True(t, created.After(before))
	})

	t.Run("MissingFields", func(t *testing.T) {
		svc := createTestService(t)

		cases := []struct {
			name, apiKey, expiry string
			wantErr              error
		}{
			{"no api key", "", fixtures.FutureExpiry, api_keys.ErrEmptyAPIKey},
			{"no expiry", "k1", "", api_keys.ErrEmptyExpiry},
			{"neither", "", "", api_keys.ErrEmptyAPIKey},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				err := svc.Add(ctx, tc.apiKey, tc.expiry)

				var validationErr *api_keys.ValidationError
				require.ErrorAs(t, err, &validationErr)
				assert.ErrorIs(t, err, tc.wantErr)
			})
		}

		assert.Empty(t, svc.ListKeys(ctx))
		assert.Empty(t, svc.ListLogs(ctx))
	})

	t.Run("DuplicateKeepsOriginal", func(t *testing.T) {
		svc := createTestService(t)
		require.NoError(t, svc.Add(ctx, "k1", fixtures.FutureExpiry))
		original := svc.ListKeys(ctx)["k1"]

		err := svc.Add(ctx, "k1", fixtures.PastExpiry)
		var duplicateErr *api_keys.DuplicateKeyError
		require.ErrorAs(t, err, &duplicateErr)
		assert.ErrorIs(t, err, api_keys.ErrKeyExists)
		assert.Equal(t, original, svc.ListKeys(ctx)["k1"])
		assert.Len(t, svc.ListLogs(ctx), 1)
	})

	t.Run("DuplicateOfSoftDeletedKey", func(t *testing.T) {
		svc := createTestService(t)
		require.NoError(t, svc.Add(ctx, "k1", fixtures.FutureExpiry))
		require.NoError(t, svc.SoftDelete(ctx, "k1"))
		original := svc.ListKeys(ctx)["k1"]

		err := svc.Add(ctx, "k1", fixtures.FutureExpiry)
		assert.ErrorIs(t, err, api_keys.ErrKeyExists)
		assert.Equal(t, original, svc.ListKeys(ctx)["k1"])
	})
}

func TestServiceGet(t *testing.T) {
	ctx := context.Background()

	t.Run("Unknown", func(t *testing.T) {
		svc := createTestService(t)
		lookup := svc.Get(ctx, "missing")
		assert.Equal(t, api_keys.StatusInvalid, lookup.Status)
		assert.Nil(t, lookup.Record)
	})

	t.Run("Expired", func(t *testing.T) {
		svc := createTestService(t)
		require.NoError(t, svc.Add(ctx, "old", fixtures.PastExpiry))

		lookup := svc.Get(ctx, "old")
		assert.Equal(t, api_keys.StatusExpired, lookup.Status)
		require.NotNil(t, lookup.Record)
		assert.Equal(t, fixtures.PastExpiry, lookup.Record.Expired)
	})

	t.Run("ReadsDoNotLog", func(t *testing.T) {
		svc := createTestService(t)
		require.NoError(t, svc.Add(ctx, "k1", fixtures.FutureExpiry))

		svc.Get(ctx, "k1")
		svc.Get(ctx, "missing")
		svc.ListKeys(ctx)

		assert.Len(t, svc.ListLogs(ctx), 1)
	})
}

func TestServiceDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("SoftDelete", func(t *testing.T) {
		svc := createTestService(t)
		require.NoError(t, svc.Add(ctx, "k1", fixtures.FutureExpiry))

		require.NoError(t, svc.SoftDelete(ctx, "k1"))
		assert.True(t, svc.ListKeys(ctx)["k1"].Deleted)
		assert.Equal(t, api_keys.StatusDeleted, svc.Get(ctx, "k1").Status)

		// repeated soft delete succeeds and logs again
		require.NoError(t, svc.SoftDelete(ctx, "k1"))
		logs := svc.ListLogs(ctx)
		require.Len(t, logs, 3)
		assert.Equal(t, api_keys.ActionSoftDelete, logs[1].Action)
		assert.Equal(t, api_keys.ActionSoftDelete, logs[2].Action)
	})

	t.Run("SoftDeleteMissing", func(t *testing.T) {
		svc := createTestService(t)

		err := svc.SoftDelete(ctx, "missing")
		var notFoundErr *api_keys.NotFoundError
		require.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, "missing", notFoundErr.APIKey)
		assert.Empty(t, svc.ListLogs(ctx))
	})

	t.Run("HardDelete", func(t *testing.T) {
		svc := createTestService(t)
		require.NoError(t, svc.Add(ctx, "k1", fixtures.FutureExpiry))

		require.NoError(t, svc.HardDelete(ctx, "k1"))
		assert.Equal(t, api_keys.StatusInvalid, svc.Get(ctx, "k1").Status)
		assert.NotContains(t, svc.ListKeys(ctx), "k1")

		logs := svc.ListLogs(ctx)
		require.Len(t, logs, 2)
		assert.Equal(t, api_keys.ActionHardDelete, logs[1].Action)
		assert.Equal(t, "k1", logs[0].APIKey, "entries for removed keys are kept")
	})

	t.Run("HardDeleteMissing", func(t *testing.T) {
		svc := createTestService(t)
		assert.ErrorIs(t, svc.HardDelete(ctx, "missing"), api_keys.ErrKeyNotFound)
		assert.Empty(t, svc.ListLogs(ctx))
	})
}

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := createTestService(t)

	require.NoError(t, svc.Add(ctx, "k1", "2999-01-01T00:00:00Z"))
	lookup := svc.Get(ctx, "k1")
	assert.Equal(t, api_keys.StatusValid, lookup.Status)
	assert.Equal(t, "2999-01-01T00:00:00Z", lookup.Record.Expired)

	require.NoError(t, svc.SoftDelete(ctx, "k1"))
	assert.Equal(t, api_keys.StatusDeleted, svc.Get(ctx, "k1").Status)

	require.NoError(t, svc.HardDelete(ctx, "k1"))
	assert.Equal(t, api_keys.StatusInvalid, svc.Get(ctx, "k1").Status)

	logs := svc.ListLogs(ctx)
	require.Len(t, logs, 3)
	for i, action := range []api_keys.Action{api_keys.ActionAdd, api_keys.ActionSoftDelete, api_keys.ActionHardDelete} {
		assert.Equal(t, action, logs[i].Action)
		assert.Equal(t, "k1", logs[i].APIKey)
		_, err := time.Parse(time.RFC3339, logs[i].Time)
		assert.NoError(t, err)
	}
}

func TestServiceConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	svc := createTestService(t)

	const writers = 32
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, svc.Add(ctx, fmt.Sprintf("key-%d", i), fixtures.FutureExpiry))
		}(i)
	}
	wg.Wait()

	assert.Len(t, svc.ListKeys(ctx), writers)
	assert.Len(t, svc.ListLogs(ctx), writers)
}

var errDisk = errors.New("disk on fire")

// failingStore fails every call with errDisk.
type failingStore struct{}

func (failingStore) List(context.Context) (map[string]api_keys.KeyRecord, error) { return nil, errDisk }
func (failingStore) Get(context.Context, string) (*api_keys.KeyRecord, error)     { return nil, errDisk }
func (failingStore) Create(context.Context, string, api_keys.KeyRecord) error     { return errDisk }
func (failingStore) MarkDeleted(context.Context, string) error                    { return errDisk }
func (failingStore) Delete(context.Context, string) error                         { return errDisk }
func (failingStore) AppendLog(context.Context, api_keys.LogEntry) error           { return errDisk }
func (failingStore) Logs(context.Context) ([]api_keys.LogEntry, error)            { return nil, errDisk }
func (failingStore) Close() error                                                 { return nil }

func TestServiceStoreFailures(t *testing.T) {
	ctx := context.Background()
	svc := api_keys.NewService(logger.Nop(), failingStore{})

	t.Run("ReadsRecoverToEmpty", func(t *testing.T) {
		assert.Equal(t, api_keys.StatusInvalid, svc.Get(ctx, "k1").Status)
		assert.NotNil(t, svc.ListKeys(ctx))
		assert.Empty(t, svc.ListKeys(ctx))
		assert.NotNil(t, svc.ListLogs(ctx))
		assert.Empty(t, svc.ListLogs(ctx))
	})

	t.Run("WritesSurfaceError", func(t *testing.T) {
		for name, op := range map[string]func() error{
			"add":         func() error { return svc.Add(ctx, "k1", fixtures.FutureExpiry) },
			"soft delete": func() error { return svc.SoftDelete(ctx, "k1") },
			"hard delete": func() error { return svc.HardDelete(ctx, "k1") },
		} {
			err := op()
			require.ErrorIs(t, err, errDisk, name)
			assert.NotErrorIs(t, err, api_keys.ErrKeyNotFound, name)
			assert.NotErrorIs(t, err, api_keys.ErrKeyExists, name)
		}
	})
}
