package localdb

import (
	"encoding/json"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// AccessLevel is the share level recorded for a subject on an entry.
type AccessLevel int

const (
	AccessNone AccessLevel = iota
	AccessRead
	AccessReadWrite
	AccessFull
)

// SecurityRecord is a share row attaching an access level for one subject to
// one entry. EntryID follows the same convention as tag rows: decimal for
// internal entries, mapping hash id for federated entries.
type SecurityRecord struct {
	Subject   uuid.UUID   `json:"subject"`
	EntryID   string      `json:"entry_id"`
	IsFolder  bool        `json:"is_folder"`
	Access    AccessLevel `json:"access"`
	CreatedOn time.Time   `json:"created_on"`
}

// SetSecurity creates or replaces a share row.
func (d *DB) SetSecurity(rec SecurityRecord) error {
	if rec.CreatedOn.IsZero() {
		rec.CreatedOn = time.Now().UTC()
	}

	value, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	return d.Update(func(txn *badger.Txn) error {
		return txn.Set(securityKey(rec.EntryID, rec.Subject.String()), value)
	})
}

// SecurityForEntry returns every share row attached to the entry id.
func (d *DB) SecurityForEntry(entryID string) ([]SecurityRecord, error) {
	prefix := []byte(prefixSecurityEntry + entryID + ":")

	var records []SecurityRecord
	err := d.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var rec SecurityRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// CascadeDeleteEntries removes, in one transaction, every tag and security
// row attached to the given entry ids. Used by the internal store when
// deleting natively-hosted entries; the federated cascade goes through
// CascadeDelete, which also clears mapping rows.
func (d *DB) CascadeDeleteEntries(entryIDs ...string) error {
	return d.Update(func(txn *badger.Txn) error {
		for _, entryID := range entryIDs {
			if err := deleteTagsForEntryTx(txn, entryID); err != nil {
				return err
			}
			if err := deleteSecurityForEntryTx(txn, entryID); err != nil {
				return err
			}
		}
		return nil
	})
}

// deleteSecurityForEntryTx removes every share row on entryID inside an
// existing transaction. Part of the deletion cascade.
func deleteSecurityForEntryTx(txn *badger.Txn, entryID string) error {
	prefix := []byte(prefixSecurityEntry + entryID + ":")

	it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
	var keys [][]byte
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, key := range keys {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
