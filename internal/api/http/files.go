// internal/api/http/files.go
package http

import (
	"bytes"
	"errors"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/solidstore/solidstore/internal/blob"
	"github.com/solidstore/solidstore/internal/token"
)

const (
	defaultContentType = "application/octet-stream"
	defaultDisposition = "attachment"
)

// MountFiles wires the signed-URL delivery endpoints:
//
//	GET /{encodedKey}/*filename  -> show (read with Range support)
//	PUT /{encodedToken}          -> update (direct upload)
func MountFiles(r chi.Router, reg *blob.Registry, signer token.Signer) {
	r.Get("/{encodedKey}/*", ShowHandler(reg, signer))
	r.Put("/{encodedToken}", UpdateHandler(reg, signer))
}

// ShowHandler verifies a read key and streams the blob it names. Token
// failures and missing blobs are both 404; a valid Range header yields 206,
// an unsatisfiable one 416.
func ShowHandler(reg *blob.Registry, signer token.Signer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := signer.Verify(chi.URLParam(r, "encodedKey"), token.PurposeBlobKey)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		eng, ok := reg.Lookup(key.Service)
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		data, err := eng.Download(r.Context(), key.Key)
		if err != nil {
			if errors.Is(err, blob.ErrNotFound) {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}

		ct := key.ContentType
		if ct == "" {
			ct = defaultContentType
		}
		cd := key.Disposition
		if cd == "" {
			cd = defaultDisposition
		}
		w.Header().Set("Content-Type", ct)
		w.Header().Set("Content-Disposition", cd)
		// ServeContent handles Range (206/416 + Content-Range) and keeps the
		// Content-Type set above. The buffer is request-scoped and released
		// on return regardless of outcome.
		http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(data))
	}
}

// UpdateHandler verifies an upload token and performs the direct upload. The
// request's declared Content-Type and Content-Length must match the token
// before storage is touched; a checksum mismatch inside Upload rolls the
// write back and also yields 422.
func UpdateHandler(reg *blob.Registry, signer token.Signer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok, err := signer.Verify(chi.URLParam(r, "encodedToken"), token.PurposeBlobToken)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		eng, ok := reg.Lookup(tok.Service)
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if !acceptableContent(r, tok) {
			http.Error(w, "unprocessable content", http.StatusUnprocessableEntity)
			return
		}
		if _, err := eng.Upload(r.Context(), tok.Key, r.Body, tok.Checksum); err != nil {
			switch {
			case errors.Is(err, blob.ErrIntegrity):
				http.Error(w, "unprocessable content", http.StatusUnprocessableEntity)
			case errors.Is(err, blob.ErrTooLarge):
				http.Error(w, "too large", http.StatusRequestEntityTooLarge)
			default:
				http.Error(w, "storage error", http.StatusInternalServerError)
			}
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func acceptableContent(r *http.Request, tok token.Claims) bool {
	return equivalentContentType(tok.ContentType, r.Header.Get("Content-Type")) &&
		r.ContentLength == tok.ContentLength
}

// equivalentContentType compares media types ignoring parameters and a small
// set of aliased MIME strings, so "text/plain; charset=utf-8" matches
// "text/plain" and "image/jpg" matches "image/jpeg".
func equivalentContentType(a, b string) bool {
	return canonicalMediaType(a) == canonicalMediaType(b)
}

var mimeAliases = map[string]string{
	"image/jpg":          "image/jpeg",
	"text/xml":           "application/xml",
	"application/x-gzip": "application/gzip",
	"audio/mpeg3":        "audio/mpeg",
}

func canonicalMediaType(ct string) string {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ct
	}
	if alias, ok := mimeAliases[mt]; ok {
		return alias
	}
	return mt
}
