package aggregator

import (
	"context"

	"github.com/google/uuid"

	"github.com/driveio/fedfs/pkg/entry"
	"github.com/driveio/fedfs/pkg/localdb"
)

// overlay decorates entries with per-user statuses from the tag rows:
// favorite, template, unread and pin flags for the viewing user, lock state
// regardless of holder. Entries with no mapping yet are left untouched.
func (a *Aggregator) overlay(ctx context.Context, entries []*entry.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	ids, index := a.entryIndex(entries)
	tags, err := a.db.TagsForEntries(ids)
	if err != nil {
		return err
	}

	for _, tag := range tags {
		for _, e := range index[tag.EntryID] {
			applyTag(e, tag, a.user)
		}
	}
	return nil
}

// applyPins loads the viewing user's pin tags onto the folders of a
// listing. Pins decide the sort partition, so they must be set before
// SortEntries runs; the other statuses are overlaid on the page afterwards.
func (a *Aggregator) applyPins(entries []*entry.Entry) error {
	var folders []*entry.Entry
	for _, e := range entries {
		if e.IsFolder() {
			folders = append(folders, e)
		}
	}
	if len(folders) == 0 {
		return nil
	}

	ids, index := a.entryIndex(folders)
	tags, err := a.db.TagsForEntries(ids)
	if err != nil {
		return err
	}

	for _, tag := range tags {
		if tag.Type != localdb.TagPin || tag.Owner != a.user {
			continue
		}
		for _, e := range index[tag.EntryID] {
			applyTag(e, tag, a.user)
		}
	}
	return nil
}

// entryIndex groups entries by their tag row id, skipping entries with no
// mapping yet.
func (a *Aggregator) entryIndex(entries []*entry.Entry) ([]string, map[string][]*entry.Entry) {
	index := make(map[string][]*entry.Entry, len(entries))
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		id, ok := a.entryID(e)
		if !ok {
			continue
		}
		if _, seen := index[id]; !seen {
			ids = append(ids, id)
		}
		index[id] = append(index[id], e)
	}
	return ids, index
}

func applyTag(e *entry.Entry, tag localdb.Tag, user uuid.UUID) {
	if tag.Type == localdb.TagLocked {
		if e.File != nil {
			e.File.Locked = true
			e.File.LockedBy = tag.Owner
		}
		return
	}
	if tag.Owner != user {
		return
	}

	switch tag.Type {
	case localdb.TagFavorite:
		if e.File != nil {
			e.File.IsFavorite = true
		} else if e.Folder != nil {
			e.Folder.IsFavorite = true
		}
	case localdb.TagTemplate:
		if e.File != nil {
			e.File.IsTemplate = true
		}
	case localdb.TagNew:
		if e.File != nil {
			e.File.IsNew = true
		}
	case localdb.TagPin:
		if e.Folder != nil {
			e.Folder.Pinned = true
		}
	}
}
