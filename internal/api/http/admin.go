// internal/api/http/admin.go
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/solidstore/solidstore/internal/blob"
	"golang.org/x/crypto/bcrypt"
)

// MountAdmin wires the trusted operator/application endpoints, guarded by
// HTTP basic auth checked against a bcrypt hash:
//
//	POST   /urls                     mint a signed read URL
//	POST   /upload-urls              mint a signed direct-upload URL
//	DELETE /blobs?service=&prefix=   purge all blobs under a key prefix
//	GET    /blobs/exists?service=&key=
//
// urlOpts names the externally visible host minted URLs point at; defaultTTL
// applies when a request omits expires_in.
func MountAdmin(r chi.Router, reg *blob.Registry, urlOpts blob.URLOptions, defaultTTL time.Duration, user, passHash string) {
	r.Use(basicAuth(user, passHash))

	r.Post("/urls", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Service     string `json:"service"`
			Key         string `json:"key"`
			Filename    string `json:"filename"`
			ContentType string `json:"content_type"`
			Disposition string `json:"disposition"`
			ExpiresIn   int64  `json:"expires_in"` // seconds; ignored when public
			Public      bool   `json:"public"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		eng, ok := reg.Lookup(req.Service)
		if !ok {
			http.Error(w, "unknown service", http.StatusNotFound)
			return
		}
		var u string
		var err error
		if req.Public {
			u, err = eng.PublicURL(req.Key, urlOpts, req.Filename, req.ContentType, req.Disposition)
		} else {
			u, err = eng.PrivateURL(req.Key, urlOpts, ttlOr(req.ExpiresIn, defaultTTL), req.Filename, req.ContentType, req.Disposition)
		}
		if err != nil {
			writeURLError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"url": u})
	})

	r.Post("/upload-urls", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Service       string `json:"service"`
			Key           string `json:"key"`
			ContentType   string `json:"content_type"`
			ContentLength int64  `json:"content_length"`
			Checksum      string `json:"checksum"`
			ExpiresIn     int64  `json:"expires_in"` // seconds
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		eng, ok := reg.Lookup(req.Service)
		if !ok {
			http.Error(w, "unknown service", http.StatusNotFound)
			return
		}
		u, err := eng.URLForDirectUpload(req.Key, urlOpts, ttlOr(req.ExpiresIn, defaultTTL), req.ContentType, req.ContentLength, req.Checksum)
		if err != nil {
			writeURLError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"url":     u,
			"headers": eng.HeadersForDirectUpload(req.ContentType),
		})
	})

	r.Delete("/blobs", func(w http.ResponseWriter, r *http.Request) {
		eng, ok := reg.Lookup(r.URL.Query().Get("service"))
		if !ok {
			http.Error(w, "unknown service", http.StatusNotFound)
			return
		}
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			http.Error(w, "prefix required", http.StatusBadRequest)
			return
		}
		if err := eng.DeletePrefixed(r.Context(), prefix); err != nil {
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/blobs/exists", func(w http.ResponseWriter, r *http.Request) {
		eng, ok := reg.Lookup(r.URL.Query().Get("service"))
		if !ok {
			http.Error(w, "unknown service", http.StatusNotFound)
			return
		}
		exists, err := eng.Exists(r.Context(), r.URL.Query().Get("key"))
		if err != nil {
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]bool{"exists": exists})
	})
}

func ttlOr(seconds int64, def time.Duration) time.Duration {
	if seconds <= 0 {
		return def
	}
	return time.Duration(seconds) * time.Second
}

func writeURLError(w http.ResponseWriter, err error) {
	if errors.Is(err, blob.ErrMissingURLOptions) {
		http.Error(w, "url host not configured", http.StatusInternalServerError)
		return
	}
	http.Error(w, "signing error", http.StatusInternalServerError)
}

func basicAuth(user, passHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, p, ok := r.BasicAuth()
			if !ok || u != user ||
				bcrypt.CompareHashAndPassword([]byte(passHash), []byte(p)) != nil {
				w.Header().Set("WWW-Authenticate", `Basic realm="solidstore admin"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
