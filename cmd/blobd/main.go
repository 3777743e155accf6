package main

import (
	"context"
	"log"
	"net/http"
	"time"

	api "github.com/solidstore/solidstore/internal/api/http"
	"github.com/solidstore/solidstore/internal/blob"
	"github.com/solidstore/solidstore/internal/config"
	"github.com/solidstore/solidstore/internal/db"
	"github.com/solidstore/solidstore/internal/token"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	store := blob.NewRecordStore(dbh, cfg.DBDriver)

	// --- Signed access ---
	signer := token.NewHMACSigner(cfg.SigningSecret)

	// --- Engines: one per configured service name ---
	registry := blob.NewRegistry()
	for _, name := range cfg.Services {
		registry.Register(blob.NewEngine(store, signer, blob.EngineConfig{
			Name:          name,
			PathPrefix:    cfg.RoutePrefix,
			MaxObjectSize: cfg.MaxObjectSize,
			Observer:      blob.LogObserver{},
		}))
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Range"},
		ExposedHeaders:   []string{"Content-Length", "Content-Range", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Signed-URL delivery surface
	r.Route(cfg.RoutePrefix, func(fr chi.Router) {
		api.MountFiles(fr, registry, signer)
	})

	// Trusted surface: URL minting + maintenance (basic auth, bcrypt)
	if cfg.EnableAdmin {
		if cfg.AdminPassHash == "" {
			log.Fatalf("ENABLE_ADMIN set but ADMIN_PASS_HASH is empty")
		}
		urlOpts := blob.ParseURLOptions(cfg.PublicURL)
		r.Route("/admin", func(ar chi.Router) {
			api.MountAdmin(ar, registry, urlOpts, cfg.TokenTTL, cfg.AdminUser, cfg.AdminPassHash)
		})
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})

	log.Printf("listening on %s (db=%s, services=%v)", cfg.HTTPAddr, cfg.DBDriver, cfg.Services)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
