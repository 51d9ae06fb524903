//go:generate go run go.uber.org/mock/mockgen -source=presence.go -destination=../mocks/mock_presence_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"match-lab/domain"
	"match-lab/errors"
)

type IPresenceRepository interface {
	Get(id domain.Identity) (bool, error)
	Set(id domain.Identity, online bool) error
	All() ([]PresenceRecord, error)
}

// PresenceRecord is the on-disk representation of one identity's flag.
type PresenceRecord struct {
	Identity  domain.Identity `json:"identity"`
	Online    bool            `json:"online"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PresenceRepository persists the online/offline flag per identity in
// BadgerDB under "presence:{identity}". Values are JSON records.
//
// Set upserts: account provisioning is external to this service, so the
// first connect of an identity seeds its record.
type PresenceRepository struct {
	db *badger.DB
}

func NewPresenceRepository(db *badger.DB) *PresenceRepository {
	return &PresenceRepository{db: db}
}

const presencePrefix = "presence:"

func presenceKey(id domain.Identity) []byte {
	return []byte(presencePrefix + id.String())
}

func (r *PresenceRepository) Set(id domain.Identity, online bool) error {
	record := PresenceRecord{
		Identity:  id,
		Online:    online,
		UpdatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(presenceKey(id), data)
	})
}

// Get retrieves the flag for an identity. An identity without a record
// is a recoverable condition reported as ErrUnknownIdentity.
func (r *PresenceRepository) Get(id domain.Identity) (bool, error) {
	var record PresenceRecord

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(presenceKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})

	if err == badger.ErrKeyNotFound {
		return false, fmt.Errorf("%w: %s", errors.ErrUnknownIdentity, id)
	}
	if err != nil {
		return false, err
	}
	return record.Online, nil
}

// All returns every presence record via a prefix scan, for the debug
// dashboard and the presencectl viewer.
func (r *PresenceRepository) All() ([]PresenceRecord, error) {
	var records []PresenceRecord

	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(presencePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var record PresenceRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			})
			if err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})

	return records, err
}
