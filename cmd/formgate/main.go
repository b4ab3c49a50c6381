// cmd/formgate/main.go
//
// Formgate – form submission gateway entry point.
//
// Boot sequence
// -------------
//
//  1. Load layered configuration (conf/.env → conf/formgate.yaml →
//     FORMGATE_* env overrides) and validate it.
//
//  2. Start daily rotating logger (tees to console when running in a TTY).
//
//  3. Resolve `vault:` references (derivation pepper, upstream token).
//
//  4. Open the journal DB when enabled and log readiness.
//
//  5. Walk the forms directory into the registry, then compile every
//     definition once so declaration mistakes abort boot, not the first
//     submission.
//
//  6. Open the optional GeoIP database for journal metadata.
//
//  7. Build the chi router and serve with hardened timeouts; SIGINT/SIGTERM
//     drain in-flight requests before exit.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/yanizio/formgate/internal/config"
	"github.com/yanizio/formgate/internal/database"
	"github.com/yanizio/formgate/internal/formdef"
	"github.com/yanizio/formgate/internal/journal"
	"github.com/yanizio/formgate/internal/logger"
	"github.com/yanizio/formgate/internal/pipeline"
	"github.com/yanizio/formgate/internal/requestinfo"
	"github.com/yanizio/formgate/internal/server"
	"github.com/yanizio/formgate/internal/vault"
)

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// absUnder roots a possibly-relative configured path at the runtime root.
func absUnder(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	//
	// ── 1.  Configuration ───────────────────────────────────────────────
	//
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logOut, err := logger.New(cfg.Paths.Root, runningInTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}
	defer func() { _ = logOut.Sync() }()

	//
	// ── 2.  Vault reference resolution ──────────────────────────────────
	//
	pepper := cfg.Security.HashPepper
	token := cfg.Upstream.AuthToken

	if vault.IsRef(pepper) || vault.IsRef(token) {
		cli, err := vault.New(ctx, logOut.Infof)
		if err != nil {
			logOut.Fatalw("vault client", "err", err)
		}
		if pepper, err = cli.Resolve(ctx, pepper); err != nil {
			logOut.Fatalw("resolve hash pepper", "err", err)
		}
		if token, err = cli.Resolve(ctx, token); err != nil {
			logOut.Fatalw("resolve upstream token", "err", err)
		}
	}

	//
	// ── 3.  Journal DB (optional) ───────────────────────────────────────
	//
	var store *journal.Store
	if cfg.Database.Enabled {
		logOut.Infow("connecting to journal DB")
		db, err := database.Open(cfg.Database.DSN)
		if err != nil {
			logOut.Fatalw("connect journal DB", "err", err)
		}
		defer db.Close()
		store = journal.NewStore(db)
		logOut.Infow("journal DB online")
	}

	//
	// ── 4.  Form registry, compiled once to fail fast ───────────────────
	//
	registry := formdef.NewRegistry()
	formsDir := absUnder(cfg.Paths.Root, cfg.Forms.Dir)
	if err := registry.RegisterDir(formsDir); err != nil {
		logOut.Fatalw("register forms", "dir", formsDir, "err", err)
	}

	submitHeader := http.Header{}
	if token != "" {
		submitHeader.Set("Authorization", "Bearer "+token)
	}
	submitter := pipeline.NewHTTPSubmitter(
		cfg.Upstream.BaseURL,
		&http.Client{Timeout: cfg.Upstream.Timeout},
		submitHeader,
	)

	for _, id := range registry.IDs() {
		def, _ := registry.Get(id)
		if _, err := formdef.Compile(def, submitter, []byte(pepper)); err != nil {
			logOut.Fatalw("compile form", "form", id, "err", err)
		}
	}
	logOut.Infow("forms registered", "count", len(registry.IDs()), "dir", formsDir)

	//
	// ── 5.  GeoIP (optional) ────────────────────────────────────────────
	//
	geo, err := requestinfo.Open(absUnder(cfg.Paths.Root, cfg.GeoIP.DBPath))
	if err != nil {
		logOut.Fatalw("open GeoIP DB", "err", err)
	}
	defer geo.Close()

	//
	// ── 6.  HTTP surface ────────────────────────────────────────────────
	//
	gw := server.New(registry, submitter, []byte(pepper), store, geo, logOut)
	srv := server.NewHTTPServer(cfg.HTTP.ListenAddr, gw.Router())

	go func() {
		logOut.Infow("listening", "addr", cfg.HTTP.ListenAddr, "upstream", cfg.Upstream.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logOut.Fatalw("http server", "err", err)
		}
	}()

	<-ctx.Done()
	logOut.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logOut.Errorw("shutdown", "err", err)
	}
}
