package localdb

import (
	"encoding/json"
	"errors"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// TagType classifies a tag row.
type TagType string

const (
	TagFavorite TagType = "favorite"
	TagTemplate TagType = "template"
	TagRecent   TagType = "recent"
	TagNew      TagType = "new"
	TagLocked   TagType = "locked"
	TagPin      TagType = "pin"
)

// Tag associates a user with an entry for one of the virtual views or status
// flags. EntryID is the decimal id for internal entries and the mapping hash
// id for federated entries.
type Tag struct {
	Owner     uuid.UUID `json:"owner"`
	EntryID   string    `json:"entry_id"`
	IsFolder  bool      `json:"is_folder"`
	Type      TagType   `json:"type"`
	CreatedOn time.Time `json:"created_on"`
}

// SetTag creates or refreshes a tag row. Refreshing updates CreatedOn, which
// moves the entry to the front of the Recent view.
func (d *DB) SetTag(tag Tag) error {
	if tag.CreatedOn.IsZero() {
		tag.CreatedOn = time.Now().UTC()
	}

	value, err := json.Marshal(tag)
	if err != nil {
		return err
	}

	owner := tag.Owner.String()
	return d.Update(func(txn *badger.Txn) error {
		if err := txn.Set(tagOwnerKey(owner, string(tag.Type), tag.EntryID), value); err != nil {
			return err
		}
		return txn.Set(tagEntryKey(tag.EntryID, owner, string(tag.Type)), value)
	})
}

// RemoveTag deletes a tag row. Removing a missing tag is not an error.
func (d *DB) RemoveTag(owner uuid.UUID, tagType TagType, entryID string) error {
	o := owner.String()
	return d.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(tagOwnerKey(o, string(tagType), entryID)); err != nil {
			return err
		}
		return txn.Delete(tagEntryKey(entryID, o, string(tagType)))
	})
}

// TagsByOwner returns the owner's tags of one type, most recently tagged
// first. The Recent view relies on this order.
func (d *DB) TagsByOwner(owner uuid.UUID, tagType TagType) ([]Tag, error) {
	prefix := []byte(prefixTagByOwner + owner.String() + ":" + string(tagType) + ":")

	var tags []Tag
	err := d.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var tag Tag
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &tag)
			})
			if err != nil {
				return err
			}
			tags = append(tags, tag)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(tags, func(i, j int) bool {
		return tags[i].CreatedOn.After(tags[j].CreatedOn)
	})
	return tags, nil
}

// TagsForEntries returns all tags attached to any of the given entry ids,
// regardless of owner. Used by the status overlay to mark favorite,
// template, new and locked flags on a page of results.
func (d *DB) TagsForEntries(entryIDs []string) ([]Tag, error) {
	var tags []Tag
	err := d.View(func(txn *badger.Txn) error {
		for _, entryID := range entryIDs {
			prefix := []byte(prefixTagByEntry + entryID + ":")

			it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
			for it.Rewind(); it.Valid(); it.Next() {
				var tag Tag
				err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &tag)
				})
				if err != nil {
					it.Close()
					return err
				}
				tags = append(tags, tag)
			}
			it.Close()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

// HasTag reports whether a tag row exists.
func (d *DB) HasTag(owner uuid.UUID, tagType TagType, entryID string) (bool, error) {
	found := false
	err := d.View(func(txn *badger.Txn) error {
		_, err := txn.Get(tagOwnerKey(owner.String(), string(tagType), entryID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

// DeleteTagsForEntry removes every tag row attached to the entry id.
func (d *DB) DeleteTagsForEntry(entryID string) error {
	return d.Update(func(txn *badger.Txn) error {
		return deleteTagsForEntryTx(txn, entryID)
	})
}

// deleteTagsForEntryTx removes both key forms of every tag on entryID inside
// an existing transaction. Part of the deletion cascade.
func deleteTagsForEntryTx(txn *badger.Txn, entryID string) error {
	prefix := []byte(prefixTagByEntry + entryID + ":")

	it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
	var keys [][]byte
	var tags []Tag
	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		keys = append(keys, item.KeyCopy(nil))

		var tag Tag
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &tag) }); err != nil {
			it.Close()
			return err
		}
		tags = append(tags, tag)
	}
	it.Close()

	for _, key := range keys {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	for _, tag := range tags {
		if err := txn.Delete(tagOwnerKey(tag.Owner.String(), string(tag.Type), tag.EntryID)); err != nil {
			return err
		}
	}
	return nil
}
