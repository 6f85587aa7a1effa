package provider

import (
	"context"
	"io"
	"time"

	"golang.org/x/time/rate"
)

// throttledClient decorates a Client with token bucket rate limiting on
// every remote call. Calls wait for a token instead of failing, so a burst
// of store operations degrades into throttled throughput rather than a
// stream of quota errors from the backend.
type throttledClient struct {
	inner   Client
	limiter *rate.Limiter
}

// Throttle wraps client so that remote calls are limited to
// requestsPerSecond sustained with the given burst capacity.
//
// A requestsPerSecond of 0 returns the client unwrapped. The PreSigner
// capability of the inner client is preserved: the returned client
// implements PreSigner exactly when the inner one does.
func Throttle(client Client, requestsPerSecond, burst uint) Client {
	if requestsPerSecond == 0 {
		return client
	}
	if burst == 0 {
		burst = requestsPerSecond
	}
	t := &throttledClient{
		inner:   client,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
	if signer, ok := client.(PreSigner); ok {
		return &throttledPreSigner{throttledClient: t, signer: signer}
	}
	return t
}

func (t *throttledClient) List(ctx context.Context, parentPath string) ([]Item, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.inner.List(ctx, parentPath)
}

func (t *throttledClient) Get(ctx context.Context, path string) (*Item, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.inner.Get(ctx, path)
}

func (t *throttledClient) CreateFolder(ctx context.Context, parentPath, title string) (*Item, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.inner.CreateFolder(ctx, parentPath, title)
}

func (t *throttledClient) CreateFile(ctx context.Context, parentPath, title string, stream io.Reader) (*Item, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.inner.CreateFile(ctx, parentPath, title, stream)
}

func (t *throttledClient) SaveStream(ctx context.Context, path string, stream io.Reader) (*Item, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.inner.SaveStream(ctx, path, stream)
}

func (t *throttledClient) Move(ctx context.Context, path, toParentPath, title string) (*Item, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.inner.Move(ctx, path, toParentPath, title)
}

func (t *throttledClient) Copy(ctx context.Context, path, toParentPath, title string) (*Item, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.inner.Copy(ctx, path, toParentPath, title)
}

func (t *throttledClient) Delete(ctx context.Context, path string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	return t.inner.Delete(ctx, path)
}

func (t *throttledClient) OpenDownload(ctx context.Context, path string, offset int64) (io.ReadCloser, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.inner.OpenDownload(ctx, path, offset)
}

func (t *throttledClient) MaxUploadSize() int64 {
	return t.inner.MaxUploadSize()
}

func (t *throttledClient) CreateResumableSession(ctx context.Context) (string, bool, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", false, err
	}
	return t.inner.CreateResumableSession(ctx)
}

func (t *throttledClient) AppendToSession(ctx context.Context, token string, offset int64, chunk io.Reader, length int64) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	return t.inner.AppendToSession(ctx, token, offset, chunk, length)
}

func (t *throttledClient) FinishSession(ctx context.Context, token, parentPath, title string, size int64) (*Item, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.inner.FinishSession(ctx, token, parentPath, title, size)
}

func (t *throttledClient) AbortSession(ctx context.Context, token string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	return t.inner.AbortSession(ctx, token)
}

// throttledPreSigner carries the PreSigner capability through the throttle.
// Pre-signing is local computation, so it does not consume a token.
type throttledPreSigner struct {
	*throttledClient
	signer PreSigner
}

func (t *throttledPreSigner) PreSignedURL(ctx context.Context, path string, expires time.Duration) (string, error) {
	return t.signer.PreSignedURL(ctx, path, expires)
}

var (
	_ Client    = (*throttledClient)(nil)
	_ PreSigner = (*throttledPreSigner)(nil)
)
