// Package memory implements an in-memory provider client. It is the
// reference backend for tests and local development: full folder/file
// semantics, optional native upload sessions, no remote round-trips.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	stdpath "path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/driveio/fedfs/pkg/store/provider"
)

type item struct {
	isFolder bool
	data     []byte
	created  time.Time
	modified time.Time
	rev      int
}

type session struct {
	buf bytes.Buffer
}

// Client is an in-memory provider.Client.
type Client struct {
	mu          sync.RWMutex
	items       map[string]*item
	sessions    map[string]*session
	useSessions bool
	maxUpload   int64
	now         func() time.Time
}

// Option configures the client.
type Option func(*Client)

// WithoutSessions disables native upload sessions, forcing callers onto the
// local spill path.
func WithoutSessions() Option {
	return func(c *Client) { c.useSessions = false }
}

// WithMaxUploadSize sets the single-upload limit reported by the client.
func WithMaxUploadSize(n int64) Option {
	return func(c *Client) { c.maxUpload = n }
}

// WithClock overrides the timestamp source. Tests use it for deterministic
// ordering.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New returns an empty in-memory client with a root folder.
func New(opts ...Option) *Client {
	c := &Client{
		items:       make(map[string]*item),
		sessions:    make(map[string]*session),
		useSessions: true,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	t := c.now()
	c.items["/"] = &item{isFolder: true, created: t, modified: t}
	return c
}

var _ provider.Client = (*Client)(nil)

func (c *Client) toItem(path string, it *item) provider.Item {
	name := stdpath.Base(path)
	if path == "/" {
		name = "/"
	}
	return provider.Item{
		Path:     path,
		Name:     name,
		IsFolder: it.isFolder,
		Size:     int64(len(it.data)),
		Created:  it.created,
		Modified: it.modified,
		Rev:      fmt.Sprintf("%d", it.rev),
	}
}

func (c *Client) List(_ context.Context, parentPath string) ([]provider.Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	parent, ok := c.items[parentPath]
	if !ok || !parent.isFolder {
		return nil, provider.ErrItemNotFound
	}
	var out []provider.Item
	for p, it := range c.items {
		if p != "/" && stdpath.Dir(p) == parentPath {
			out = append(out, c.toItem(p, it))
		}
	}
	return out, nil
}

func (c *Client) Get(_ context.Context, path string) (*provider.Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, ok := c.items[path]
	if !ok {
		return nil, provider.ErrItemNotFound
	}
	out := c.toItem(path, it)
	return &out, nil
}

func (c *Client) CreateFolder(_ context.Context, parentPath, title string) (*provider.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := stdpath.Join(parentPath, title)
	if parent, ok := c.items[parentPath]; !ok || !parent.isFolder {
		return nil, provider.ErrItemNotFound
	}
	if _, exists := c.items[path]; exists {
		return nil, provider.ErrItemExists
	}
	t := c.now()
	c.items[path] = &item{isFolder: true, created: t, modified: t}
	out := c.toItem(path, c.items[path])
	return &out, nil
}

func (c *Client) CreateFile(_ context.Context, parentPath, title string, stream io.Reader) (*provider.Item, error) {
	path := stdpath.Join(parentPath, title)

	// Reject a taken title before touching the stream, so the caller can
	// retry with another title and the same reader.
	c.mu.RLock()
	parent, ok := c.items[parentPath]
	_, exists := c.items[path]
	c.mu.RUnlock()
	if !ok || !parent.isFolder {
		return nil, provider.ErrItemNotFound
	}
	if exists {
		return nil, provider.ErrItemExists
	}

	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if parent, ok := c.items[parentPath]; !ok || !parent.isFolder {
		return nil, provider.ErrItemNotFound
	}
	if _, exists := c.items[path]; exists {
		return nil, provider.ErrItemExists
	}
	t := c.now()
	c.items[path] = &item{data: data, created: t, modified: t}
	out := c.toItem(path, c.items[path])
	return &out, nil
}

func (c *Client) SaveStream(_ context.Context, path string, stream io.Reader) (*provider.Item, error) {
	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[path]
	if !ok || it.isFolder {
		return nil, provider.ErrItemNotFound
	}
	it.data = data
	it.modified = c.now()
	it.rev++
	out := c.toItem(path, it)
	return &out, nil
}

func (c *Client) Move(_ context.Context, path, toParentPath, title string) (*provider.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	src, ok := c.items[path]
	if !ok {
		return nil, provider.ErrItemNotFound
	}
	if parent, ok := c.items[toParentPath]; !ok || !parent.isFolder {
		return nil, provider.ErrItemNotFound
	}
	dst := stdpath.Join(toParentPath, title)
	if dst == path {
		out := c.toItem(path, src)
		return &out, nil
	}
	if _, exists := c.items[dst]; exists {
		return nil, provider.ErrItemExists
	}

	for _, p := range c.subtree(path) {
		rewritten := dst + strings.TrimPrefix(p, path)
		c.items[rewritten] = c.items[p]
		delete(c.items, p)
	}
	c.items[dst].modified = c.now()
	out := c.toItem(dst, c.items[dst])
	return &out, nil
}

func (c *Client) Copy(_ context.Context, path, toParentPath, title string) (*provider.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[path]; !ok {
		return nil, provider.ErrItemNotFound
	}
	if parent, ok := c.items[toParentPath]; !ok || !parent.isFolder {
		return nil, provider.ErrItemNotFound
	}
	dst := stdpath.Join(toParentPath, title)
	if _, exists := c.items[dst]; exists {
		return nil, provider.ErrItemExists
	}

	t := c.now()
	for _, p := range c.subtree(path) {
		it := c.items[p]
		dup := &item{
			isFolder: it.isFolder,
			data:     append([]byte(nil), it.data...),
			created:  t,
			modified: t,
		}
		c.items[dst+strings.TrimPrefix(p, path)] = dup
	}
	out := c.toItem(dst, c.items[dst])
	return &out, nil
}

func (c *Client) Delete(_ context.Context, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[path]; !ok {
		return provider.ErrItemNotFound
	}
	for _, p := range c.subtree(path) {
		delete(c.items, p)
	}
	return nil
}

func (c *Client) OpenDownload(_ context.Context, path string, offset int64) (io.ReadCloser, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, ok := c.items[path]
	if !ok || it.isFolder {
		return nil, provider.ErrItemNotFound
	}
	if offset > int64(len(it.data)) {
		offset = int64(len(it.data))
	}
	data := append([]byte(nil), it.data[offset:]...)
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (c *Client) MaxUploadSize() int64 { return c.maxUpload }

func (c *Client) CreateResumableSession(_ context.Context) (string, bool, error) {
	if !c.useSessions {
		return "", false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	token := uuid.NewString()
	c.sessions[token] = &session{}
	return token, true, nil
}

func (c *Client) AppendToSession(_ context.Context, token string, offset int64, chunk io.Reader, _ int64) error {
	data, err := io.ReadAll(chunk)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	sess, ok := c.sessions[token]
	if !ok {
		return provider.ErrItemNotFound
	}
	if offset != int64(sess.buf.Len()) {
		return fmt.Errorf("session %s: offset %d does not match uploaded length %d", token, offset, sess.buf.Len())
	}
	sess.buf.Write(data)
	return nil
}

func (c *Client) FinishSession(_ context.Context, token, parentPath, title string, size int64) (*provider.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, ok := c.sessions[token]
	if !ok {
		return nil, provider.ErrItemNotFound
	}
	if int64(sess.buf.Len()) != size {
		return nil, fmt.Errorf("session %s: uploaded %d bytes, declared %d", token, sess.buf.Len(), size)
	}
	if parent, ok := c.items[parentPath]; !ok || !parent.isFolder {
		return nil, provider.ErrItemNotFound
	}
	path := stdpath.Join(parentPath, title)
	if _, exists := c.items[path]; exists {
		return nil, provider.ErrItemExists
	}

	t := c.now()
	c.items[path] = &item{data: append([]byte(nil), sess.buf.Bytes()...), created: t, modified: t}
	delete(c.sessions, token)
	out := c.toItem(path, c.items[path])
	return &out, nil
}

func (c *Client) AbortSession(_ context.Context, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.sessions, token)
	return nil
}

// subtree returns path and every key under "path/...". Callers hold the
// lock.
func (c *Client) subtree(path string) []string {
	var out []string
	for p := range c.items {
		if p == path || strings.HasPrefix(p, path+"/") {
			out = append(out, p)
		}
	}
	return out
}
