package provider

import (
	"context"
	"io"
	stdpath "path"

	"github.com/driveio/fedfs/pkg/entry"
)

// Resumable is the slice of the store the chunked upload manager drives when
// the backend supports native upload sessions. Stores whose backend lacks
// sessions report ok=false from CreateResumable and the manager spills
// chunks to local content storage instead.
type Resumable interface {
	CreateResumable(ctx context.Context) (token string, ok bool, err error)
	AppendResumable(ctx context.Context, token string, offset int64, chunk io.Reader, length int64) error
	FinishResumable(ctx context.Context, token string, parentID string, title string, size int64) (*entry.File[string], error)
	AbortResumable(ctx context.Context, token string) error
}

var _ Resumable = (*Store)(nil)

// CreateResumable opens a native upload session on the backend.
func (s *Store) CreateResumable(ctx context.Context) (string, bool, error) {
	token, ok, err := s.raw.CreateResumableSession(ctx)
	if err != nil {
		return "", false, s.mapError(err, s.RootFolderID())
	}
	return token, ok, nil
}

// AppendResumable streams one chunk into the session at offset.
func (s *Store) AppendResumable(ctx context.Context, token string, offset int64, chunk io.Reader, length int64) error {
	if err := s.raw.AppendToSession(ctx, token, offset, chunk, length); err != nil {
		return s.mapError(err, token)
	}
	return nil
}

// FinishResumable commits the session as a new file, applying the title
// collision policy and registering a mapping like any other create.
func (s *Store) FinishResumable(ctx context.Context, token string, parentID string, title string, size int64) (*entry.File[string], error) {
	parent, err := s.parsePath(parentID)
	if err != nil {
		return nil, err
	}
	resolved, err := s.availableTitle(ctx, parent, title)
	if err != nil {
		return nil, err
	}
	it, err := s.raw.FinishSession(ctx, token, parent, resolved, size)
	if err != nil {
		return nil, s.mapError(err, s.MakeID(stdpath.Join(parent, resolved)))
	}
	if _, err := s.db.EnsureMapping(s.MakeID(it.Path)); err != nil {
		return nil, err
	}
	s.client.Reset(parent, it.Path)
	return s.fileFromItem(it), nil
}

// AbortResumable abandons the session. Best-effort.
func (s *Store) AbortResumable(ctx context.Context, token string) error {
	return s.raw.AbortSession(ctx, token)
}
