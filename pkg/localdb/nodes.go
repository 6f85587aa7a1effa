package localdb

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// ErrNodeNotFound is returned when no internal node exists for an id.
var ErrNodeNotFound = errors.New("node not found")

// Node is the persisted form of one internal folder or file. The file-only
// fields stay zero on folders.
type Node struct {
	ID       int    `json:"id"`
	ParentID int    `json:"parent_id"`
	Title    string `json:"title"`
	IsFolder bool   `json:"is_folder"`

	CreatedBy  uuid.UUID `json:"created_by"`
	CreatedOn  time.Time `json:"created_on"`
	ModifiedBy uuid.UUID `json:"modified_by"`
	ModifiedOn time.Time `json:"modified_on"`
	RootType   int       `json:"root_type"`

	Version       int    `json:"version,omitempty"`
	ContentLength int64  `json:"content_length,omitempty"`
	ContentID     string `json:"content_id,omitempty"`
}

// EntryID returns the node's id in the form tag and security rows use.
func (n *Node) EntryID() string {
	return strconv.Itoa(n.ID)
}

func (n *Node) recordKey() []byte {
	if n.IsFolder {
		return folderKey(n.ID)
	}
	return fileKey(n.ID)
}

// PutNode writes the node record and its child index row. Reparenting must
// go through MoveNode so the old index row is removed.
func (d *DB) PutNode(n Node) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return d.Update(func(txn *badger.Txn) error {
		if err := txn.Set(n.recordKey(), data); err != nil {
			return err
		}
		return txn.Set(childKey(n.ParentID, n.IsFolder, n.ID), []byte(n.Title))
	})
}

// GetNode loads one node by id and kind, or ErrNodeNotFound.
func (d *DB) GetNode(id int, isFolder bool) (*Node, error) {
	var n *Node
	err := d.View(func(txn *badger.Txn) error {
		var err error
		n, err = getNodeTx(txn, id, isFolder)
		return err
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

func getNodeTx(txn *badger.Txn, id int, isFolder bool) (*Node, error) {
	key := fileKey(id)
	if isFolder {
		key = folderKey(id)
	}
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNodeNotFound
	}
	if err != nil {
		return nil, err
	}
	var n Node
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &n)
	})
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ChildNodes returns the immediate children of a folder, folders and files
// mixed, in no particular order.
func (d *DB) ChildNodes(parentID int) ([]Node, error) {
	var out []Node
	err := d.View(func(txn *badger.Txn) error {
		var err error
		out, err = childNodesTx(txn, parentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func childNodesTx(txn *badger.Txn, parentID int) ([]Node, error) {
	prefix := childPrefix(parentID)

	type ref struct {
		id       int
		isFolder bool
	}
	var refs []ref

	it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
	for it.Rewind(); it.Valid(); it.Next() {
		rest := strings.TrimPrefix(string(it.Item().Key()), string(prefix))
		kind, idPart, ok := strings.Cut(rest, ":")
		if !ok {
			continue
		}
		id, err := strconv.Atoi(idPart)
		if err != nil {
			continue
		}
		refs = append(refs, ref{id: id, isFolder: kind == "d"})
	}
	it.Close()

	out := make([]Node, 0, len(refs))
	for _, r := range refs {
		n, err := getNodeTx(txn, r.id, r.isFolder)
		if err != nil {
			if errors.Is(err, ErrNodeNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, *n)
	}
	return out, nil
}

// MoveNode reparents the node under toParentID, rewriting the child index.
func (d *DB) MoveNode(id int, isFolder bool, toParentID int, modifiedBy uuid.UUID, modifiedOn time.Time) (*Node, error) {
	var moved *Node
	err := d.Update(func(txn *badger.Txn) error {
		n, err := getNodeTx(txn, id, isFolder)
		if err != nil {
			return err
		}
		if err := txn.Delete(childKey(n.ParentID, n.IsFolder, n.ID)); err != nil {
			return err
		}
		n.ParentID = toParentID
		n.ModifiedBy = modifiedBy
		n.ModifiedOn = modifiedOn

		data, err := json.Marshal(n)
		if err != nil {
			return err
		}
		if err := txn.Set(n.recordKey(), data); err != nil {
			return err
		}
		if err := txn.Set(childKey(n.ParentID, n.IsFolder, n.ID), []byte(n.Title)); err != nil {
			return err
		}
		moved = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

// RenameNode changes the node's title in place. Ids are not path-derived,
// so a rename never rewrites identifiers.
func (d *DB) RenameNode(id int, isFolder bool, title string, modifiedBy uuid.UUID, modifiedOn time.Time) (*Node, error) {
	var renamed *Node
	err := d.Update(func(txn *badger.Txn) error {
		n, err := getNodeTx(txn, id, isFolder)
		if err != nil {
			return err
		}
		n.Title = title
		n.ModifiedBy = modifiedBy
		n.ModifiedOn = modifiedOn

		data, err := json.Marshal(n)
		if err != nil {
			return err
		}
		if err := txn.Set(n.recordKey(), data); err != nil {
			return err
		}
		if err := txn.Set(childKey(n.ParentID, n.IsFolder, n.ID), []byte(n.Title)); err != nil {
			return err
		}
		renamed = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return renamed, nil
}

// DeleteNodes removes, in one transaction, the given nodes together with
// their child index rows and all tag and security rows keyed by their ids.
// Callers collect the subtree first; this does not recurse.
func (d *DB) DeleteNodes(nodes []Node) error {
	return d.Update(func(txn *badger.Txn) error {
		for i := range nodes {
			n := &nodes[i]
			if err := txn.Delete(n.recordKey()); err != nil {
				return err
			}
			if err := txn.Delete(childKey(n.ParentID, n.IsFolder, n.ID)); err != nil {
				return err
			}
			if err := deleteTagsForEntryTx(txn, n.EntryID()); err != nil {
				return err
			}
			if err := deleteSecurityForEntryTx(txn, n.EntryID()); err != nil {
				return err
			}
		}
		return nil
	})
}

// AllContentIDs returns the content id of every file node. Garbage
// collection uses it as the referenced set.
func (d *DB) AllContentIDs() ([]string, error) {
	prefix := []byte("n:f:")

	var out []string
	err := d.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var n Node
				if err := json.Unmarshal(val, &n); err != nil {
					return err
				}
				if n.ContentID != "" {
					out = append(out, n.ContentID)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
