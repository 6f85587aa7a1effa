package aggregator

import (
	"context"
	"strconv"

	"github.com/driveio/fedfs/pkg/entry"
	"github.com/driveio/fedfs/pkg/localdb"
)

// ensureEntryID returns the tag row id for a reference, creating the
// identifier mapping for federated entries on first use.
func (a *Aggregator) ensureEntryID(ref entry.Ref) (string, error) {
	if id, ok := ref.Int(); ok {
		return strconv.Itoa(id), nil
	}
	fid, _ := ref.Str()
	return a.db.EnsureMapping(fid)
}

// MarkRecent puts a file at the front of the user's Recent view. Re-marking
// an already recent file refreshes its position.
func (a *Aggregator) MarkRecent(ctx context.Context, ref entry.Ref) error {
	id, err := a.ensureEntryID(ref)
	if err != nil {
		return err
	}
	return a.db.SetTag(localdb.Tag{Owner: a.user, EntryID: id, Type: localdb.TagRecent})
}

// SetFavorite stars or unstars an entry for the user.
func (a *Aggregator) SetFavorite(ctx context.Context, ref entry.Ref, isFolder, on bool) error {
	return a.toggle(ref, localdb.TagFavorite, isFolder, on)
}

// SetTemplate marks or unmarks a file as a template for the user.
func (a *Aggregator) SetTemplate(ctx context.Context, ref entry.Ref, on bool) error {
	return a.toggle(ref, localdb.TagTemplate, false, on)
}

// SetPin pins or unpins a folder to the top of listings for the user.
func (a *Aggregator) SetPin(ctx context.Context, ref entry.Ref, on bool) error {
	return a.toggle(ref, localdb.TagPin, true, on)
}

// MarkNew flags a file as unread for the user; ClearNew removes the flag.
func (a *Aggregator) MarkNew(ctx context.Context, ref entry.Ref) error {
	return a.toggle(ref, localdb.TagNew, false, true)
}

// ClearNew removes the unread flag from a file for the user.
func (a *Aggregator) ClearNew(ctx context.Context, ref entry.Ref) error {
	return a.toggle(ref, localdb.TagNew, false, false)
}

func (a *Aggregator) toggle(ref entry.Ref, tagType localdb.TagType, isFolder, on bool) error {
	id, err := a.ensureEntryID(ref)
	if err != nil {
		return err
	}
	if on {
		return a.db.SetTag(localdb.Tag{Owner: a.user, EntryID: id, IsFolder: isFolder, Type: tagType})
	}
	return a.db.RemoveTag(a.user, tagType, id)
}
