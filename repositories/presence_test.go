package repositories

import (
	stderrors "errors"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"match-lab/domain"
	"match-lab/errors"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPresenceRepository_SetAndGet(t *testing.T) {
	req := require.New(t)
	repository := NewPresenceRepository(openTestDB(t))

	// When the first connect seeds the record
	req.NoError(repository.Set("alice", true))

	online, err := repository.Get("alice")
	req.NoError(err)
	req.True(online)

	// And a later disconnect flips it
	req.NoError(repository.Set("alice", false))
	online, err = repository.Get("alice")
	req.NoError(err)
	req.False(online)
}

func TestPresenceRepository_UnknownIdentity(t *testing.T) {
	req := require.New(t)
	repository := NewPresenceRepository(openTestDB(t))

	_, err := repository.Get("ghost")
	req.Error(err)
	req.True(stderrors.Is(err, errors.ErrUnknownIdentity))
}

func TestPresenceRepository_All(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewPresenceRepository(db)

	req.NoError(repository.Set("alice", true))
	req.NoError(repository.Set("bob", false))

	// An unrelated key must not leak into the scan
	req.NoError(db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("session:123"), []byte("{}"))
	}))

	records, err := repository.All()
	req.NoError(err)
	req.Len(records, 2)

	byIdentity := make(map[domain.Identity]bool, len(records))
	for _, record := range records {
		req.False(record.UpdatedAt.IsZero())
		byIdentity[record.Identity] = record.Online
	}
	req.Equal(map[domain.Identity]bool{"alice": true, "bob": false}, byIdentity)
}
