// Package security declares the capability collaborators the filesystem
// layer consults before exposing or mutating entries. The real policy engine
// lives outside this layer; the aggregator and the stores only depend on
// these interfaces.
package security

import (
	"context"

	"github.com/driveio/fedfs/pkg/entry"
	"github.com/google/uuid"
)

// Oracle answers capability checks for one authenticated user. Every
// aggregated listing, native or virtual, passes through CanRead before
// pagination; mutating store operations check the matching capability first.
type Oracle interface {
	CanRead(ctx context.Context, e *entry.Entry) (bool, error)
	CanEdit(ctx context.Context, e *entry.Entry) (bool, error)
	CanDelete(ctx context.Context, e *entry.Entry) (bool, error)
	CanCreate(ctx context.Context, parent *entry.Entry) (bool, error)
}

// Locker reports edit locks. A save or rename not issued by the lock owner
// must fail with a conflict.
type Locker interface {
	// LockedForUser returns the locking user's id when fileRef is locked
	// by someone other than userID, or uuid.Nil when the user may proceed.
	LockedForUser(ctx context.Context, fileRef entry.Ref, userID uuid.UUID) (uuid.UUID, error)
}

// ShareResolver discovers the entries shared with the current user. It backs
// the Shared, VirtualRooms and Privacy virtual views; results still pass
// through the oracle and the aggregator's filter pipeline.
type ShareResolver interface {
	SharesForUser(ctx context.Context, userID uuid.UUID, root entry.RootType) ([]*entry.Entry, error)
}

// AllowAll is an Oracle that grants everything. Used by tests and
// single-user deployments.
type AllowAll struct{}

func (AllowAll) CanRead(context.Context, *entry.Entry) (bool, error)   { return true, nil }
func (AllowAll) CanEdit(context.Context, *entry.Entry) (bool, error)   { return true, nil }
func (AllowAll) CanDelete(context.Context, *entry.Entry) (bool, error) { return true, nil }
func (AllowAll) CanCreate(context.Context, *entry.Entry) (bool, error) { return true, nil }

// NoLocks is a Locker that never reports a lock.
type NoLocks struct{}

func (NoLocks) LockedForUser(context.Context, entry.Ref, uuid.UUID) (uuid.UUID, error) {
	return uuid.Nil, nil
}
