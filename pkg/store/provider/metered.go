package provider

import (
	"context"
	"io"
	"time"
)

// Metrics receives observations about remote provider calls. A nil Metrics
// disables collection with no overhead.
//
// Implementations must be safe for concurrent use.
type Metrics interface {
	// ObserveCall records one remote call against a provider.
	ObserveCall(providerKey, op string, err error, duration time.Duration)
}

// meteredClient decorates a Client with per-call metrics. Only calls that
// reach the backend are observed; cache hits never pass through here
// because the cache layer wraps the metered client.
type meteredClient struct {
	inner Client
	key   string
	m     Metrics
}

// Meter wraps client so every remote call is reported to m under the given
// provider key. A nil m returns the client unwrapped. The PreSigner
// capability of the inner client is preserved.
func Meter(client Client, key string, m Metrics) Client {
	if m == nil {
		return client
	}
	c := &meteredClient{inner: client, key: key, m: m}
	if signer, ok := client.(PreSigner); ok {
		return &meteredPreSigner{meteredClient: c, signer: signer}
	}
	return c
}

func (c *meteredClient) observe(op string, err error, start time.Time) {
	c.m.ObserveCall(c.key, op, err, time.Since(start))
}

func (c *meteredClient) List(ctx context.Context, parentPath string) ([]Item, error) {
	start := time.Now()
	items, err := c.inner.List(ctx, parentPath)
	c.observe("list", err, start)
	return items, err
}

func (c *meteredClient) Get(ctx context.Context, path string) (*Item, error) {
	start := time.Now()
	item, err := c.inner.Get(ctx, path)
	c.observe("get", err, start)
	return item, err
}

func (c *meteredClient) CreateFolder(ctx context.Context, parentPath, title string) (*Item, error) {
	start := time.Now()
	item, err := c.inner.CreateFolder(ctx, parentPath, title)
	c.observe("create_folder", err, start)
	return item, err
}

func (c *meteredClient) CreateFile(ctx context.Context, parentPath, title string, stream io.Reader) (*Item, error) {
	start := time.Now()
	item, err := c.inner.CreateFile(ctx, parentPath, title, stream)
	c.observe("create_file", err, start)
	return item, err
}

func (c *meteredClient) SaveStream(ctx context.Context, path string, stream io.Reader) (*Item, error) {
	start := time.Now()
	item, err := c.inner.SaveStream(ctx, path, stream)
	c.observe("save_stream", err, start)
	return item, err
}

func (c *meteredClient) Move(ctx context.Context, path, toParentPath, title string) (*Item, error) {
	start := time.Now()
	item, err := c.inner.Move(ctx, path, toParentPath, title)
	c.observe("move", err, start)
	return item, err
}

func (c *meteredClient) Copy(ctx context.Context, path, toParentPath, title string) (*Item, error) {
	start := time.Now()
	item, err := c.inner.Copy(ctx, path, toParentPath, title)
	c.observe("copy", err, start)
	return item, err
}

func (c *meteredClient) Delete(ctx context.Context, path string) error {
	start := time.Now()
	err := c.inner.Delete(ctx, path)
	c.observe("delete", err, start)
	return err
}

func (c *meteredClient) OpenDownload(ctx context.Context, path string, offset int64) (io.ReadCloser, error) {
	start := time.Now()
	rc, err := c.inner.OpenDownload(ctx, path, offset)
	c.observe("open_download", err, start)
	return rc, err
}

func (c *meteredClient) MaxUploadSize() int64 {
	return c.inner.MaxUploadSize()
}

func (c *meteredClient) CreateResumableSession(ctx context.Context) (string, bool, error) {
	start := time.Now()
	token, ok, err := c.inner.CreateResumableSession(ctx)
	c.observe("create_session", err, start)
	return token, ok, err
}

func (c *meteredClient) AppendToSession(ctx context.Context, token string, offset int64, chunk io.Reader, length int64) error {
	start := time.Now()
	err := c.inner.AppendToSession(ctx, token, offset, chunk, length)
	c.observe("append_session", err, start)
	return err
}

func (c *meteredClient) FinishSession(ctx context.Context, token, parentPath, title string, size int64) (*Item, error) {
	start := time.Now()
	item, err := c.inner.FinishSession(ctx, token, parentPath, title, size)
	c.observe("finish_session", err, start)
	return item, err
}

func (c *meteredClient) AbortSession(ctx context.Context, token string) error {
	start := time.Now()
	err := c.inner.AbortSession(ctx, token)
	c.observe("abort_session", err, start)
	return err
}

type meteredPreSigner struct {
	*meteredClient
	signer PreSigner
}

func (c *meteredPreSigner) PreSignedURL(ctx context.Context, path string, expires time.Duration) (string, error) {
	return c.signer.PreSignedURL(ctx, path, expires)
}

var (
	_ Client    = (*meteredClient)(nil)
	_ PreSigner = (*meteredPreSigner)(nil)
)
