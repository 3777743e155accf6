// Package blob implements the database-backed blob storage engine: row-level
// record persistence, the service-facing upload/download/compose API, and
// signed-URL generation for delegated reads and direct uploads.
package blob

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"io"
	"time"

	"github.com/solidstore/solidstore/internal/token"
)

// DownloadChunkSize is the slice size handed to DownloadChunks callbacks.
const DownloadChunkSize = 5 << 20 // 5 MiB

// DefaultMaxObjectSize caps a single stored object.
const DefaultMaxObjectSize = 512 << 20 // 512 MiB

// EngineConfig carries per-service engine settings.
type EngineConfig struct {
	// Name identifies this engine in token payloads and registry lookups.
	Name string
	// PathPrefix is the route prefix the delivery handler is mounted under,
	// used when building signed URLs.
	PathPrefix string
	// MaxObjectSize bounds a single upload; DefaultMaxObjectSize when zero.
	MaxObjectSize int64
	// Observer receives an event per engine operation; NopObserver when nil.
	Observer Observer
}

// Engine is the service-facing storage API over a RecordStore. It holds no
// locks and runs no multi-statement transactions; coordination is delegated
// to the backing database.
type Engine struct {
	name       string
	store      *RecordStore
	signer     token.Signer
	pathPrefix string
	maxSize    int64
	obs        Observer
}

func NewEngine(store *RecordStore, signer token.Signer, cfg EngineConfig) *Engine {
	e := &Engine{
		name:       cfg.Name,
		store:      store,
		signer:     signer,
		pathPrefix: cfg.PathPrefix,
		maxSize:    cfg.MaxObjectSize,
		obs:        cfg.Observer,
	}
	if e.pathPrefix == "" {
		e.pathPrefix = "/solid/storage"
	}
	if e.maxSize <= 0 {
		e.maxSize = DefaultMaxObjectSize
	}
	if e.obs == nil {
		e.obs = NopObserver{}
	}
	return e
}

func (e *Engine) Name() string { return e.name }

// Upload reads r fully, stores it under key, and — when checksum is non-empty
// — verifies the stored bytes against it (MD5, base64-encoded). The check
// runs after the write: on mismatch the fresh record is deleted again and
// ErrIntegrity is returned.
func (e *Engine) Upload(ctx context.Context, key string, r io.Reader, checksum string) (rec Record, err error) {
	done := e.obs.Observe(Event{Op: "upload", Service: e.name, Key: key, Checksum: checksum})
	defer func() { done(err) }()

	data, err := io.ReadAll(io.LimitReader(r, e.maxSize+1))
	if err != nil {
		return Record{}, err
	}
	if int64(len(data)) > e.maxSize {
		return Record{}, ErrTooLarge
	}
	if _, err = e.store.Insert(ctx, key, data); err != nil {
		return Record{}, err
	}
	if checksum != "" {
		if err = e.ensureIntegrity(ctx, key, checksum); err != nil {
			return Record{}, err
		}
	}
	rec, err = e.store.FindByKey(ctx, key)
	return rec, err
}

func (e *Engine) ensureIntegrity(ctx context.Context, key, checksum string) error {
	rec, err := e.store.FindByKey(ctx, key)
	if err != nil {
		return err
	}
	sum := md5.Sum(rec.Data)
	if base64.StdEncoding.EncodeToString(sum[:]) != checksum {
		if err := e.store.DeleteByKey(ctx, key); err != nil {
			return err
		}
		return ErrIntegrity
	}
	return nil
}

// Download returns the full object. ErrNotFound when no record exists.
func (e *Engine) Download(ctx context.Context, key string) (data []byte, err error) {
	done := e.obs.Observe(Event{Op: "download", Service: e.name, Key: key})
	defer func() { done(err) }()

	rec, err := e.store.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	return rec.Data, nil
}

// DownloadChunks materializes the full object, then yields it to fn in
// DownloadChunkSize slices. The slices alias the materialized buffer and are
// only valid during the callback.
func (e *Engine) DownloadChunks(ctx context.Context, key string, fn func([]byte) error) (err error) {
	done := e.obs.Observe(Event{Op: "streaming_download", Service: e.name, Key: key})
	defer func() { done(err) }()

	rec, err := e.store.FindByKey(ctx, key)
	if err != nil {
		return err
	}
	for off := 0; off < len(rec.Data); off += DownloadChunkSize {
		end := off + DownloadChunkSize
		if end > len(rec.Data) {
			end = len(rec.Data)
		}
		if err = fn(rec.Data[off:end]); err != nil {
			return err
		}
	}
	return nil
}

// DownloadChunk returns the byte range [offset, offset+length), extracted
// inside the database rather than in process.
func (e *Engine) DownloadChunk(ctx context.Context, key string, offset, length int64) (chunk []byte, err error) {
	done := e.obs.Observe(Event{Op: "download_chunk", Service: e.name, Key: key})
	defer func() { done(err) }()

	return e.store.ExtractRange(ctx, key, offset, length)
}

// Compose concatenates the sources in the order given by sourceKeys and
// stores the result under destinationKey. A missing source contributes
// nothing and raises no error; a source key listed twice contributes twice.
func (e *Engine) Compose(ctx context.Context, sourceKeys []string, destinationKey string) (err error) {
	done := e.obs.Observe(Event{Op: "compose", Service: e.name, Key: destinationKey})
	defer func() { done(err) }()

	found, err := e.store.FindByKeys(ctx, sourceKeys)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	for _, k := range sourceKeys {
		buf.Write(found[k])
	}
	_, err = e.store.Insert(ctx, destinationKey, buf.Bytes())
	return err
}

// Delete removes all records for key. Missing keys are a no-op.
func (e *Engine) Delete(ctx context.Context, key string) (err error) {
	done := e.obs.Observe(Event{Op: "delete", Service: e.name, Key: key})
	defer func() { done(err) }()

	return e.store.DeleteByKey(ctx, key)
}

// DeletePrefixed removes all records whose key starts with prefix.
func (e *Engine) DeletePrefixed(ctx context.Context, prefix string) (err error) {
	done := e.obs.Observe(Event{Op: "delete_prefixed", Service: e.name, Key: prefix})
	defer func() { done(err) }()

	return e.store.DeleteByPrefix(ctx, prefix)
}

func (e *Engine) Exists(ctx context.Context, key string) (ok bool, err error) {
	done := e.obs.Observe(Event{Op: "exist", Service: e.name, Key: key})
	defer func() { done(err) }()

	return e.store.Exists(ctx, key)
}

// URLForDirectUpload mints an upload token and embeds it in a PUT URL
// pointing at the delivery handler's update endpoint.
func (e *Engine) URLForDirectUpload(key string, opts URLOptions, expiresIn time.Duration, contentType string, contentLength int64, checksum string) (string, error) {
	base, err := opts.BaseURL()
	if err != nil {
		return "", err
	}
	tok, err := e.signer.Sign(token.Claims{
		Service:       e.name,
		Key:           key,
		ContentType:   contentType,
		ContentLength: contentLength,
		Checksum:      checksum,
	}, expiresIn, token.PurposeBlobToken)
	if err != nil {
		return "", err
	}
	return base + e.pathPrefix + "/" + tok, nil
}

// HeadersForDirectUpload is the minimal header set a direct-upload client
// must send alongside the PUT body.
func (e *Engine) HeadersForDirectUpload(contentType string) map[string]string {
	return map[string]string{"Content-Type": contentType}
}

// PrivateURL mints an expiring read URL for key.
func (e *Engine) PrivateURL(key string, opts URLOptions, expiresIn time.Duration, filename, contentType, disposition string) (string, error) {
	return e.generateURL(key, opts, expiresIn, filename, contentType, disposition)
}

// PublicURL mints a non-expiring read URL for key.
func (e *Engine) PublicURL(key string, opts URLOptions, filename, contentType, disposition string) (string, error) {
	return e.generateURL(key, opts, 0, filename, contentType, disposition)
}

func (e *Engine) generateURL(key string, opts URLOptions, expiresIn time.Duration, filename, contentType, disposition string) (string, error) {
	base, err := opts.BaseURL()
	if err != nil {
		return "", err
	}
	tok, err := e.signer.Sign(token.Claims{
		Service:     e.name,
		Key:         key,
		ContentType: contentType,
		Disposition: ContentDisposition(disposition, filename),
	}, expiresIn, token.PurposeBlobKey)
	if err != nil {
		return "", err
	}
	return base + e.pathPrefix + "/" + tok + "/" + escapePathSegment(filename), nil
}
