package transaction

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	transactionBucket = "transactions"
	settingsBucket    = "settings"
	cacheBucket       = "cache"

	settingsKey = "user_settings"
	cacheKey    = "import_cache"
)

// DB defines the persistence operations the capture service needs.
type DB interface {
	// SaveTransaction saves a transaction
	SaveTransaction(txn *Transaction) error

	// GetTransaction retrieves a transaction by ID
	GetTransaction(id string) (*Transaction, error)

	// ListTransactions returns all transactions
	ListTransactions() ([]*Transaction, error)

	// DeleteTransaction removes a transaction
	DeleteTransaction(id string) error

	// ClearTransactions removes all transactions (after a successful export)
	ClearTransactions() error

	// GetSettings returns the stored settings, or defaults when none exist
	GetSettings() (Settings, error)

	// SaveSettings stores the settings
	SaveSettings(s Settings) error

	// GetCache returns the imported known-entity lists (empty when never imported)
	GetCache() (*EntityCache, error)

	// SaveCache stores the known-entity lists
	SaveCache(c *EntityCache) error

	// Close closes the database
	Close() error
}

// BoltDB implements DB using bbolt.
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB opens (or creates) the database file and its buckets.
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{transactionBucket, settingsBucket, cacheBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveTransaction saves a transaction.
func (b *BoltDB) SaveTransaction(txn *Transaction) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(txn)
		if err != nil {
			return fmt.Errorf("marshaling transaction: %w", err)
		}
		return tx.Bucket([]byte(transactionBucket)).Put([]byte(txn.ID), data)
	})
}

// GetTransaction retrieves a transaction by ID.
func (b *BoltDB) GetTransaction(id string) (*Transaction, error) {
	var txn *Transaction
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(transactionBucket)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("transaction not found: %s", id)
		}
		return json.Unmarshal(data, &txn)
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// ListTransactions returns all transactions.
func (b *BoltDB) ListTransactions() ([]*Transaction, error) {
	txns := make([]*Transaction, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(transactionBucket)).ForEach(func(k, v []byte) error {
			var txn Transaction
			if err := json.Unmarshal(v, &txn); err != nil {
				return fmt.Errorf("unmarshaling transaction: %w", err)
			}
			txns = append(txns, &txn)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return txns, nil
}

// DeleteTransaction removes a transaction.
func (b *BoltDB) DeleteTransaction(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(transactionBucket)).Delete([]byte(id))
	})
}

// ClearTransactions removes all transactions.
func (b *BoltDB) ClearTransactions() error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(transactionBucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(transactionBucket))
		return err
	})
}

// GetSettings returns the stored settings, falling back to defaults.
func (b *BoltDB) GetSettings() (Settings, error) {
	settings := DefaultSettings()
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(settingsBucket)).Get([]byte(settingsKey))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &settings)
	})
	if err != nil {
		return Settings{}, fmt.Errorf("reading settings: %w", err)
	}
	return settings, nil
}

// SaveSettings stores the settings.
func (b *BoltDB) SaveSettings(s Settings) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshaling settings: %w", err)
		}
		return tx.Bucket([]byte(settingsBucket)).Put([]byte(settingsKey), data)
	})
}

// GetCache returns the imported entity lists, empty when nothing was imported.
func (b *BoltDB) GetCache() (*EntityCache, error) {
	cache := &EntityCache{
		Payees:     []string{},
		Categories: []string{},
		Tags:       []string{},
	}
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(cacheBucket)).Get([]byte(cacheKey))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, cache)
	})
	if err != nil {
		return nil, fmt.Errorf("reading entity cache: %w", err)
	}
	return cache, nil
}

// SaveCache stores the entity lists.
func (b *BoltDB) SaveCache(c *EntityCache) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshaling entity cache: %w", err)
		}
		return tx.Bucket([]byte(cacheBucket)).Put([]byte(cacheKey), data)
	})
}

// Close closes the database.
func (b *BoltDB) Close() error {
	return b.db.Close()
}
