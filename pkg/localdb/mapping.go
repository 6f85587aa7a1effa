package localdb

import (
	"errors"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/cespare/xxhash/v2"
)

// Identifier mapping rows give every federated entry a stable internal hash
// id the first time local metadata (a tag, a share) is attached to it. Tags
// and security rows key on the hash id, so they survive renames and moves:
// a path change updates the mapping row in place instead of recreating it.

// ErrMappingNotFound is returned when no mapping row exists for a lookup.
var ErrMappingNotFound = errors.New("identifier mapping not found")

// HashID derives the deterministic hash id for a federated identifier. The
// id is only the initial value of the mapping row; after a rename the stored
// row keeps the original hash while the path changes.
func HashID(federatedID string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(federatedID))
}

// EnsureMapping returns the hash id for a federated identifier, creating the
// mapping row if this is the first reference.
func (d *DB) EnsureMapping(federatedID string) (string, error) {
	var hashID string
	err := d.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(mappingForwardKey(federatedID))
		if err == nil {
			return item.Value(func(val []byte) error {
				hashID = string(val)
				return nil
			})
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		hashID = HashID(federatedID)
		if err := txn.Set(mappingForwardKey(federatedID), []byte(hashID)); err != nil {
			return err
		}
		return txn.Set(mappingReverseKey(hashID), []byte(federatedID))
	})
	if err != nil {
		return "", fmt.Errorf("failed to ensure mapping for %q: %w", federatedID, err)
	}
	return hashID, nil
}

// LookupHash returns the hash id mapped to a federated identifier, or
// ErrMappingNotFound.
func (d *DB) LookupHash(federatedID string) (string, error) {
	var hashID string
	err := d.View(func(txn *badger.Txn) error {
		item, err := txn.Get(mappingForwardKey(federatedID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrMappingNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			hashID = string(val)
			return nil
		})
	})
	return hashID, err
}

// FederatedID resolves a hash id back to its current federated identifier,
// or ErrMappingNotFound. A dangling hash (entry deleted remotely) is a
// mapping miss, normalized by callers to "not found".
func (d *DB) FederatedID(hashID string) (string, error) {
	var federatedID string
	err := d.View(func(txn *badger.Txn) error {
		item, err := txn.Get(mappingReverseKey(hashID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrMappingNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			federatedID = string(val)
			return nil
		})
	})
	return federatedID, err
}

// hashesForSubtreeTx collects the hash ids of the mapping row for id itself
// and for every descendant under "id/...". A plain prefix match would also
// sweep siblings that merely share the id as a string prefix ("/doc" versus
// "/docs"), so candidates are re-checked on the path boundary.
func hashesForSubtreeTx(txn *badger.Txn, id string) (map[string]string, error) {
	hashes := make(map[string]string) // federatedID -> hashID

	descendantPrefix := id + "/"
	if strings.HasSuffix(id, "/") {
		descendantPrefix = id
	}

	it := txn.NewIterator(badger.IteratorOptions{Prefix: mappingForwardKey(id)})
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		federatedID := strings.TrimPrefix(string(item.Key()), prefixMappingForward)
		if federatedID != id && !strings.HasPrefix(federatedID, descendantPrefix) {
			continue
		}
		err := item.Value(func(val []byte) error {
			hashes[federatedID] = string(val)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return hashes, nil
}

// UpdatePath rewrites every mapping row whose federated id is oldID or a
// descendant of it to the corresponding path under newID, keeping the hash
// ids unchanged so attached tags and shares follow the entry.
func (d *DB) UpdatePath(oldID, newID string) error {
	return d.Update(func(txn *badger.Txn) error {
		hashes, err := hashesForSubtreeTx(txn, oldID)
		if err != nil {
			return err
		}

		for federatedID, hashID := range hashes {
			rewritten := newID + strings.TrimPrefix(federatedID, oldID)

			if err := txn.Delete(mappingForwardKey(federatedID)); err != nil {
				return err
			}
			if err := txn.Set(mappingForwardKey(rewritten), []byte(hashID)); err != nil {
				return err
			}
			if err := txn.Set(mappingReverseKey(hashID), []byte(rewritten)); err != nil {
				return err
			}
		}

		return nil
	})
}

// CascadeDelete removes, in one transaction, the mapping rows for the
// federated id and its whole subtree together with all tag and security rows
// keyed by the mapped hash ids.
//
// The caller performs the remote delete only after this commits; a remote
// failure afterwards leaves local bookkeeping ahead of remote state, which
// normalizes to "not found" on next access.
func (d *DB) CascadeDelete(federatedID string) error {
	return d.Update(func(txn *badger.Txn) error {
		hashes, err := hashesForSubtreeTx(txn, federatedID)
		if err != nil {
			return err
		}

		for federatedID, hashID := range hashes {
			if err := deleteTagsForEntryTx(txn, hashID); err != nil {
				return err
			}
			if err := deleteSecurityForEntryTx(txn, hashID); err != nil {
				return err
			}
			if err := txn.Delete(mappingForwardKey(federatedID)); err != nil {
				return err
			}
			if err := txn.Delete(mappingReverseKey(hashID)); err != nil {
				return err
			}
		}

		return nil
	})
}
