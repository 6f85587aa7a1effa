// Package upload implements chunked upload sessions: a declared total size,
// sequential chunks, and a commit that happens exactly when the uploaded
// byte count reaches the declared total.
//
// Small uploads (at or under the chunk threshold) skip chunking and stream
// straight into the store in one call. Large uploads use the backend's
// native resumable session when the store offers one, and otherwise spill
// chunks into local content storage, replaying the spill blob into the
// store on commit.
package upload

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/driveio/fedfs/internal/logger"
	"github.com/driveio/fedfs/pkg/content"
	"github.com/driveio/fedfs/pkg/entry"
	"github.com/driveio/fedfs/pkg/store"
)

// State is the lifecycle position of a session.
type State int

const (
	StateCreated State = iota
	StateUploading
	StateCommitted
	StateAborted
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateUploading:
		return "uploading"
	case StateCommitted:
		return "committed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// resumableStore is the optional store capability of native upload
// sessions. The federated store satisfies it when its backend does.
type resumableStore[T entry.ID] interface {
	CreateResumable(ctx context.Context) (string, bool, error)
	AppendResumable(ctx context.Context, token string, offset int64, chunk io.Reader, length int64) error
	FinishResumable(ctx context.Context, token string, parentID T, title string, size int64) (*entry.File[T], error)
	AbortResumable(ctx context.Context, token string) error
}

// Session tracks one upload. All fields are read-only for callers; the
// manager mutates them under the session lock.
type Session[T entry.ID] struct {
	ID       string
	ParentID T
	Title    string

	// BytesTotal is the declared size; BytesUploaded never exceeds it.
	BytesTotal    int64
	BytesUploaded int64

	// UseChunks is false when the upload fits in one request.
	UseChunks bool

	State   State
	Created time.Time
	Expires time.Time

	mu      sync.Mutex
	token   string            // native session token, empty on the spill path
	spillID content.ContentID // spill blob, empty on the native path
	result  *entry.File[T]
}

// File returns the committed file, nil before commit.
func (s *Session[T]) File() *entry.File[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Config configures a Manager.
type Config struct {
	// ChunkThreshold is the size above which uploads are chunked.
	ChunkThreshold int64

	// TTL is how long an idle session stays resumable.
	TTL time.Duration

	// Metrics receives session observations, nil to disable.
	Metrics Metrics
}

// DefaultConfig returns a 10MB threshold and a 12 hour TTL.
func DefaultConfig() Config {
	return Config{
		ChunkThreshold: 10 * 1024 * 1024,
		TTL:            12 * time.Hour,
	}
}

// Manager owns the sessions targeting one store.
type Manager[T entry.ID] struct {
	store   store.Store[T]
	spill   content.Repository
	cfg     Config
	metrics Metrics
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session[T]
}

// NewManager builds a manager over the store. spill receives chunk bytes
// for backends without native sessions and must not be nil.
func NewManager[T entry.ID](st store.Store[T], spill content.Repository, cfg Config) *Manager[T] {
	if cfg.ChunkThreshold <= 0 {
		cfg.ChunkThreshold = DefaultConfig().ChunkThreshold
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	var metrics Metrics = noopMetrics{}
	if cfg.Metrics != nil {
		metrics = cfg.Metrics
	}
	return &Manager[T]{
		store:    st,
		spill:    spill,
		cfg:      cfg,
		metrics:  metrics,
		now:      time.Now,
		sessions: make(map[string]*Session[T]),
	}
}

// Initiate opens a session for a file of the declared size under parentID.
func (m *Manager[T]) Initiate(ctx context.Context, parentID T, title string, size int64) (*Session[T], error) {
	if title == "" {
		return nil, store.InvalidArgument("upload title is required")
	}
	if size < 0 {
		return nil, store.InvalidArgument("upload size must be declared")
	}
	if max := m.store.MaxUploadSize(); max > 0 && size > max {
		return nil, store.UploadProtocol("size %d exceeds the backend limit %d", size, max)
	}

	t := m.now()
	sess := &Session[T]{
		ID:         uuid.NewString(),
		ParentID:   parentID,
		Title:      title,
		BytesTotal: size,
		UseChunks:  size > m.cfg.ChunkThreshold,
		State:      StateCreated,
		Created:    t,
		Expires:    t.Add(m.cfg.TTL),
	}

	if sess.UseChunks {
		if rs, ok := any(m.store).(resumableStore[T]); ok {
			token, native, err := rs.CreateResumable(ctx)
			if err != nil {
				return nil, err
			}
			if native {
				sess.token = token
			}
		}
		if sess.token == "" {
			sess.spillID = content.ContentID("upload-spill-" + sess.ID)
		}
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()
	m.metrics.SessionStarted(sess.UseChunks, sess.token != "")
	return sess, nil
}

// Session returns the session by id, or ErrNotFound.
func (m *Manager[T]) Session(id string) (*Session[T], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, store.NotFound(id)
	}
	return sess, nil
}

// UploadChunk appends one chunk of the declared length. Chunks are
// sequential; the commit runs inside the call that reaches the declared
// total. Sessions without chunking take exactly one call carrying the whole
// stream.
func (m *Manager[T]) UploadChunk(ctx context.Context, sessionID string, chunk io.Reader, length int64) (*Session[T], error) {
	sess, err := m.Session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	switch sess.State {
	case StateCreated, StateUploading:
	default:
		return nil, store.UploadProtocol("session %s is %s", sess.ID, sess.State)
	}
	if m.now().After(sess.Expires) {
		return nil, store.UploadProtocol("session %s has expired", sess.ID)
	}
	if length <= 0 {
		return nil, store.InvalidArgument("chunk length must be positive")
	}
	if sess.BytesUploaded+length > sess.BytesTotal {
		return nil, store.UploadProtocol("session %s: %d bytes would exceed the declared total %d",
			sess.ID, sess.BytesUploaded+length, sess.BytesTotal)
	}

	if !sess.UseChunks {
		if length != sess.BytesTotal {
			return nil, store.UploadProtocol("session %s takes a single request of %d bytes", sess.ID, sess.BytesTotal)
		}
		file := &entry.File[T]{ParentID: sess.ParentID}
		file.Title = sess.Title
		saved, err := m.store.SaveFile(ctx, file, io.LimitReader(chunk, length))
		if err != nil {
			return nil, err
		}
		sess.BytesUploaded = length
		sess.result = saved
		sess.State = StateCommitted
		m.drop(sess.ID)
		m.metrics.ChunkUploaded(length)
		m.metrics.SessionEnded(StateCommitted.String())
		return sess, nil
	}

	if sess.token != "" {
		rs := any(m.store).(resumableStore[T])
		if err := rs.AppendResumable(ctx, sess.token, sess.BytesUploaded, io.LimitReader(chunk, length), length); err != nil {
			return nil, err
		}
		sess.BytesUploaded += length
	} else {
		total, err := m.spill.Append(ctx, sess.spillID, io.LimitReader(chunk, length))
		if err != nil {
			return nil, err
		}
		if total != sess.BytesUploaded+length {
			return nil, store.UploadProtocol("session %s: spill holds %d bytes, expected %d",
				sess.ID, total, sess.BytesUploaded+length)
		}
		sess.BytesUploaded = total
	}
	sess.State = StateUploading
	m.metrics.ChunkUploaded(length)

	if sess.BytesUploaded == sess.BytesTotal {
		if err := m.commit(ctx, sess); err != nil {
			return nil, err
		}
	}
	return sess, nil
}

// commit finishes the upload. Callers hold the session lock.
func (m *Manager[T]) commit(ctx context.Context, sess *Session[T]) error {
	if sess.token != "" {
		rs := any(m.store).(resumableStore[T])
		file, err := rs.FinishResumable(ctx, sess.token, sess.ParentID, sess.Title, sess.BytesTotal)
		if err != nil {
			return err
		}
		sess.result = file
		sess.State = StateCommitted
		m.drop(sess.ID)
		m.metrics.SessionEnded(StateCommitted.String())
		return nil
	}

	// The spill blob is removed whether or not the save succeeds; a failed
	// commit is not resumable.
	defer func() {
		if err := m.spill.Delete(context.WithoutCancel(ctx), sess.spillID); err != nil {
			logger.Warn("upload session %s: deleting spill %s failed: %v", sess.ID, sess.spillID, err)
		}
	}()

	rc, err := m.spill.Open(ctx, sess.spillID, 0)
	if err != nil {
		return err
	}
	defer rc.Close()

	file := &entry.File[T]{ParentID: sess.ParentID}
	file.Title = sess.Title
	saved, err := m.store.SaveFile(ctx, file, rc)
	if err != nil {
		sess.State = StateAborted
		m.drop(sess.ID)
		m.metrics.SessionEnded(StateAborted.String())
		return err
	}
	sess.result = saved
	sess.State = StateCommitted
	m.drop(sess.ID)
	m.metrics.SessionEnded(StateCommitted.String())
	return nil
}

// Abort abandons the session, releasing the native session or spill blob.
// Best-effort: release failures are logged and the session still ends.
func (m *Manager[T]) Abort(ctx context.Context, sessionID string) error {
	sess, err := m.Session(sessionID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.State == StateCommitted {
		return store.UploadProtocol("session %s is already committed", sess.ID)
	}
	if sess.token != "" {
		rs := any(m.store).(resumableStore[T])
		if err := rs.AbortResumable(ctx, sess.token); err != nil {
			logger.Warn("upload session %s: aborting native session failed: %v", sess.ID, err)
		}
	}
	if sess.spillID != "" {
		if err := m.spill.Delete(ctx, sess.spillID); err != nil {
			logger.Warn("upload session %s: deleting spill %s failed: %v", sess.ID, sess.spillID, err)
		}
	}
	sess.State = StateAborted
	m.drop(sess.ID)
	m.metrics.SessionEnded(StateAborted.String())
	return nil
}

// PruneExpired aborts every session past its deadline.
func (m *Manager[T]) PruneExpired(ctx context.Context) int {
	m.mu.Lock()
	var expired []string
	now := m.now()
	for id, sess := range m.sessions {
		if now.After(sess.Expires) {
			expired = append(expired, id)
		}
	}
	m.mu.Unlock()

	for _, id := range expired {
		if err := m.Abort(ctx, id); err != nil {
			logger.Warn("upload session %s: pruning failed: %v", id, err)
		}
	}
	return len(expired)
}

func (m *Manager[T]) drop(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
