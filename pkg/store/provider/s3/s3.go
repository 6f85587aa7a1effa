// Package s3 implements a provider client over Amazon S3 or S3-compatible
// storage.
//
// Key Design:
//   - A provider path "/docs/report.pdf" maps to the object key
//     "<keyPrefix>docs/report.pdf".
//   - Folders are emulated with zero-byte marker objects whose key carries a
//     trailing "/" ("<keyPrefix>docs/"). The root folder "/" always exists
//     and has no marker.
//   - Listing uses the "/" delimiter: common prefixes become folders, object
//     contents become files, and the parent's own marker is skipped.
//
// Resumable sessions map onto S3 multipart uploads against a staging key;
// finishing a session completes the multipart upload and server-side copies
// the staged object to its final key. S3 requires every part except the last
// to be at least 5MB, so callers must chunk accordingly.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdpath "path"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/driveio/fedfs/pkg/store/provider"
)

// maxPutObjectSize is the S3 single-PUT object limit.
const maxPutObjectSize = 5 * 1024 * 1024 * 1024

type mpSession struct {
	stagingKey string
	uploadID   string
	parts      []types.CompletedPart
	nextPart   int32
	written    int64
}

// Client is an S3-backed provider.Client.
//
// Thread Safety:
// Safe for concurrent use. Session state is guarded by a mutex; object
// operations rely on the SDK client's own safety.
type Client struct {
	client    *awss3.Client
	presign   *awss3.PresignClient
	bucket    string
	keyPrefix string

	mu       sync.Mutex
	sessions map[string]*mpSession
}

// Config configures the client.
type Config struct {
	// Client is the configured S3 SDK client.
	Client *awss3.Client

	// Bucket is the bucket name. It must already exist.
	Bucket string

	// KeyPrefix is an optional prefix for all object keys, with a trailing
	// "/" added if missing.
	KeyPrefix string
}

// New creates an S3 provider client.
func New(cfg Config) (*Client, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	prefix := cfg.KeyPrefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Client{
		client:    cfg.Client,
		presign:   awss3.NewPresignClient(cfg.Client),
		bucket:    cfg.Bucket,
		keyPrefix: prefix,
		sessions:  make(map[string]*mpSession),
	}, nil
}

var (
	_ provider.Client    = (*Client)(nil)
	_ provider.PreSigner = (*Client)(nil)
)

// fileKey maps a provider path to the object key of a file.
func (c *Client) fileKey(path string) string {
	return c.keyPrefix + strings.TrimPrefix(stdpath.Clean("/"+path), "/")
}

// folderKey maps a provider path to the marker key of a folder. The root has
// the bare key prefix.
func (c *Client) folderKey(path string) string {
	p := strings.TrimPrefix(stdpath.Clean("/"+path), "/")
	if p == "" {
		return c.keyPrefix
	}
	return c.keyPrefix + p + "/"
}

// pathOfKey maps an object key back to a provider path.
func (c *Client) pathOfKey(key string) string {
	return "/" + strings.TrimSuffix(strings.TrimPrefix(key, c.keyPrefix), "/")
}

func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noKey) || errors.As(err, &notFound)
}

func (c *Client) List(ctx context.Context, parentPath string) ([]provider.Item, error) {
	prefix := c.folderKey(parentPath)

	var items []provider.Item
	var token *string
	for {
		out, err := c.client.ListObjectsV2(ctx, &awss3.ListObjectsV2Input{
			Bucket:            aws.String(c.bucket),
			Prefix:            aws.String(prefix),
			Delimiter:         aws.String("/"),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", parentPath, err)
		}

		for _, cp := range out.CommonPrefixes {
			key := aws.ToString(cp.Prefix)
			items = append(items, provider.Item{
				Path:     c.pathOfKey(key),
				Name:     stdpath.Base(strings.TrimSuffix(key, "/")),
				IsFolder: true,
			})
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if key == prefix {
				// the folder's own marker
				continue
			}
			items = append(items, provider.Item{
				Path:     c.pathOfKey(key),
				Name:     stdpath.Base(key),
				Size:     aws.ToInt64(obj.Size),
				Modified: aws.ToTime(obj.LastModified),
				Rev:      strings.Trim(aws.ToString(obj.ETag), `"`),
			})
		}

		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}
	return items, nil
}

func (c *Client) Get(ctx context.Context, path string) (*provider.Item, error) {
	if stdpath.Clean("/"+path) == "/" {
		return &provider.Item{Path: "/", Name: "/", IsFolder: true}, nil
	}

	head, err := c.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.fileKey(path)),
	})
	if err == nil {
		return &provider.Item{
			Path:     stdpath.Clean("/" + path),
			Name:     stdpath.Base(path),
			Size:     aws.ToInt64(head.ContentLength),
			Modified: aws.ToTime(head.LastModified),
			Rev:      strings.Trim(aws.ToString(head.ETag), `"`),
		}, nil
	}
	if !isNotFound(err) {
		return nil, fmt.Errorf("failed to head %s: %w", path, err)
	}

	// Not a file; a folder exists when its marker or any descendant does.
	out, err := c.client.ListObjectsV2(ctx, &awss3.ListObjectsV2Input{
		Bucket:  aws.String(c.bucket),
		Prefix:  aws.String(c.folderKey(path)),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to probe folder %s: %w", path, err)
	}
	if len(out.Contents) == 0 {
		return nil, provider.ErrItemNotFound
	}
	return &provider.Item{
		Path:     stdpath.Clean("/" + path),
		Name:     stdpath.Base(path),
		IsFolder: true,
	}, nil
}

func (c *Client) CreateFolder(ctx context.Context, parentPath, title string) (*provider.Item, error) {
	path := stdpath.Join(parentPath, title)
	if _, err := c.Get(ctx, path); err == nil {
		return nil, provider.ErrItemExists
	} else if !errors.Is(err, provider.ErrItemNotFound) {
		return nil, err
	}

	_, err := c.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(c.folderKey(path)),
		Body:          strings.NewReader(""),
		ContentLength: aws.Int64(0),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create folder %s: %w", path, err)
	}
	return &provider.Item{
		Path:     path,
		Name:     title,
		IsFolder: true,
		Created:  time.Now(),
		Modified: time.Now(),
	}, nil
}

func (c *Client) CreateFile(ctx context.Context, parentPath, title string, stream io.Reader) (*provider.Item, error) {
	path := stdpath.Join(parentPath, title)
	if _, err := c.Get(ctx, path); err == nil {
		return nil, provider.ErrItemExists
	} else if !errors.Is(err, provider.ErrItemNotFound) {
		return nil, err
	}
	return c.putFile(ctx, path, stream)
}

func (c *Client) SaveStream(ctx context.Context, path string, stream io.Reader) (*provider.Item, error) {
	it, err := c.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if it.IsFolder {
		return nil, provider.ErrItemNotFound
	}
	return c.putFile(ctx, path, stream)
}

func (c *Client) putFile(ctx context.Context, path string, stream io.Reader) (*provider.Item, error) {
	// PutObject needs a known length; buffering keeps the client simple at
	// the cost of holding the body in memory. Large uploads go through
	// sessions instead.
	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("failed to read stream for %s: %w", path, err)
	}
	_, err = c.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(c.fileKey(path)),
		Body:          strings.NewReader(string(data)),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to put %s: %w", path, err)
	}
	return &provider.Item{
		Path:     stdpath.Clean("/" + path),
		Name:     stdpath.Base(path),
		Size:     int64(len(data)),
		Modified: time.Now(),
	}, nil
}

func (c *Client) Move(ctx context.Context, path, toParentPath, title string) (*provider.Item, error) {
	it, err := c.Copy(ctx, path, toParentPath, title)
	if err != nil {
		return nil, err
	}
	if err := c.Delete(ctx, path); err != nil {
		return nil, err
	}
	return it, nil
}

func (c *Client) Copy(ctx context.Context, path, toParentPath, title string) (*provider.Item, error) {
	src, err := c.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	dst := stdpath.Join(toParentPath, title)
	if _, err := c.Get(ctx, dst); err == nil {
		return nil, provider.ErrItemExists
	} else if !errors.Is(err, provider.ErrItemNotFound) {
		return nil, err
	}

	if !src.IsFolder {
		if err := c.copyObject(ctx, c.fileKey(path), c.fileKey(dst)); err != nil {
			return nil, err
		}
		out := *src
		out.Path = dst
		out.Name = title
		out.Modified = time.Now()
		return &out, nil
	}

	srcPrefix := c.folderKey(path)
	dstPrefix := c.folderKey(dst)
	keys, err := c.keysUnder(ctx, srcPrefix)
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		if err := c.copyObject(ctx, key, dstPrefix+strings.TrimPrefix(key, srcPrefix)); err != nil {
			return nil, err
		}
	}
	return &provider.Item{
		Path:     dst,
		Name:     title,
		IsFolder: true,
		Modified: time.Now(),
	}, nil
}

func (c *Client) copyObject(ctx context.Context, srcKey, dstKey string) error {
	_, err := c.client.CopyObject(ctx, &awss3.CopyObjectInput{
		Bucket:     aws.String(c.bucket),
		CopySource: aws.String(c.bucket + "/" + srcKey),
		Key:        aws.String(dstKey),
	})
	if err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", srcKey, dstKey, err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, path string) error {
	it, err := c.Get(ctx, path)
	if err != nil {
		return err
	}

	var keys []string
	if it.IsFolder {
		keys, err = c.keysUnder(ctx, c.folderKey(path))
		if err != nil {
			return err
		}
	} else {
		keys = []string{c.fileKey(path)}
	}

	for start := 0; start < len(keys); start += 1000 {
		end := min(start+1000, len(keys))
		ids := make([]types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(key)})
		}
		_, err := c.client.DeleteObjects(ctx, &awss3.DeleteObjectsInput{
			Bucket: aws.String(c.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("failed to delete under %s: %w", path, err)
		}
	}
	return nil
}

// keysUnder returns every object key with the given prefix, the folder
// marker included.
func (c *Client) keysUnder(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	var token *string
	for {
		out, err := c.client.ListObjectsV2(ctx, &awss3.ListObjectsV2Input{
			Bucket:            aws.String(c.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list prefix %s: %w", prefix, err)
		}
		for _, obj := range out.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}
	return keys, nil
}

func (c *Client) OpenDownload(ctx context.Context, path string, offset int64) (io.ReadCloser, error) {
	input := &awss3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.fileKey(path)),
	}
	if offset > 0 {
		input.Range = aws.String(fmt.Sprintf("bytes=%d-", offset))
	}
	out, err := c.client.GetObject(ctx, input)
	if err != nil {
		if isNotFound(err) {
			return nil, provider.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", path, err)
	}
	return out.Body, nil
}

func (c *Client) MaxUploadSize() int64 { return maxPutObjectSize }

func (c *Client) CreateResumableSession(ctx context.Context) (string, bool, error) {
	stagingKey := c.keyPrefix + ".uploads/" + uuid.NewString()
	out, err := c.client.CreateMultipartUpload(ctx, &awss3.CreateMultipartUploadInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(stagingKey),
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to create multipart upload: %w", err)
	}

	token := uuid.NewString()
	c.mu.Lock()
	c.sessions[token] = &mpSession{
		stagingKey: stagingKey,
		uploadID:   aws.ToString(out.UploadId),
		nextPart:   1,
	}
	c.mu.Unlock()
	return token, true, nil
}

func (c *Client) session(token string) (*mpSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess, ok := c.sessions[token]
	if !ok {
		return nil, provider.ErrItemNotFound
	}
	return sess, nil
}

func (c *Client) AppendToSession(ctx context.Context, token string, offset int64, chunk io.Reader, length int64) error {
	sess, err := c.session(token)
	if err != nil {
		return err
	}
	if offset != sess.written {
		return fmt.Errorf("session %s: offset %d does not match uploaded length %d", token, offset, sess.written)
	}

	out, err := c.client.UploadPart(ctx, &awss3.UploadPartInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(sess.stagingKey),
		UploadId:      aws.String(sess.uploadID),
		PartNumber:    aws.Int32(sess.nextPart),
		Body:          chunk,
		ContentLength: aws.Int64(length),
	})
	if err != nil {
		return fmt.Errorf("failed to upload part %d: %w", sess.nextPart, err)
	}

	c.mu.Lock()
	sess.parts = append(sess.parts, types.CompletedPart{
		ETag:       out.ETag,
		PartNumber: aws.Int32(sess.nextPart),
	})
	sess.nextPart++
	sess.written += length
	c.mu.Unlock()
	return nil
}

func (c *Client) FinishSession(ctx context.Context, token, parentPath, title string, size int64) (*provider.Item, error) {
	sess, err := c.session(token)
	if err != nil {
		return nil, err
	}
	if sess.written != size {
		return nil, fmt.Errorf("session %s: uploaded %d bytes, declared %d", token, sess.written, size)
	}

	_, err = c.client.CompleteMultipartUpload(ctx, &awss3.CompleteMultipartUploadInput{
		Bucket:          aws.String(c.bucket),
		Key:             aws.String(sess.stagingKey),
		UploadId:        aws.String(sess.uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: sess.parts},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to complete multipart upload: %w", err)
	}

	path := stdpath.Join(parentPath, title)
	if err := c.copyObject(ctx, sess.stagingKey, c.fileKey(path)); err != nil {
		return nil, err
	}
	_, _ = c.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(sess.stagingKey),
	})

	c.mu.Lock()
	delete(c.sessions, token)
	c.mu.Unlock()
	return &provider.Item{
		Path:     path,
		Name:     title,
		Size:     size,
		Modified: time.Now(),
	}, nil
}

func (c *Client) AbortSession(ctx context.Context, token string) error {
	sess, err := c.session(token)
	if err != nil {
		return nil
	}

	_, err = c.client.AbortMultipartUpload(ctx, &awss3.AbortMultipartUploadInput{
		Bucket:   aws.String(c.bucket),
		Key:      aws.String(sess.stagingKey),
		UploadId: aws.String(sess.uploadID),
	})
	if err != nil {
		var noSuchUpload *types.NoSuchUpload
		if !errors.As(err, &noSuchUpload) {
			return fmt.Errorf("failed to abort multipart upload: %w", err)
		}
	}

	c.mu.Lock()
	delete(c.sessions, token)
	c.mu.Unlock()
	return nil
}

// PreSignedURL mints a direct GET URL for the file at path.
func (c *Client) PreSignedURL(ctx context.Context, path string, expires time.Duration) (string, error) {
	req, err := c.presign.PresignGetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.fileKey(path)),
	}, awss3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", path, err)
	}
	return req.URL, nil
}
