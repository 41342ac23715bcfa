package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"inventario/backend/internal/cache"
	"inventario/backend/internal/config"
	"inventario/backend/internal/httpapi"
	"inventario/backend/internal/service"
	"inventario/backend/internal/storage"
	"inventario/backend/internal/store"
	"inventario/backend/internal/store/memory"
	pgstore "inventario/backend/internal/store/postgres"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("could not load .env: %v", err)
	}
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if dsn := cfg.DSN(); dsn != "" {
		pg, err := pgstore.New(ctx, dsn)
		if err != nil {
			log.Fatalf("postgres unavailable (%v) and a database is configured; refusing to start with in-memory fallback", err)
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Println("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		log.Println("repository: in-memory")
	}

	summaryCache := cache.SummaryCache(cache.NoopSummaryCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisSummaryCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), using noop cache", err)
		} else {
			summaryCache = redisCache
			closers = append(closers, redisCache.Close)
			log.Println("cache: redis")
		}
	} else {
		log.Println("cache: noop")
	}

	images, staticDir := newImageStore(cfg)

	svc := service.New(repo, images, summaryCache, time.Duration(cfg.SummaryTTLSeconds)*time.Second)
	api := httpapi.New(svc, cfg.AllowedOrigin, staticDir)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("inventory backend listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

// newImageStore picks Supabase storage when configured, local disk
// otherwise. The second return is the directory to serve under
// /static/images/, empty when Supabase hosts the files.
func newImageStore(cfg config.Config) (storage.ImageStore, string) {
	if cfg.SupabaseURL != "" && cfg.SupabaseKey != "" {
		log.Println("images: supabase storage")
		return storage.NewSupabase(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseBucket), ""
	}

	local, err := storage.NewLocal(cfg.ImageDir, "/static/images")
	if err != nil {
		log.Fatalf("image dir unavailable: %v", err)
	}
	log.Printf("images: local dir %s", cfg.ImageDir)
	return local, local.Dir()
}
