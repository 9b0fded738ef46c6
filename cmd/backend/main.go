package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"pdfcollate/internal/server"
	"pdfcollate/internal/store"
)

func main() {
	addr := getenvDefault("PDC_ADDR", ":8080")

	build := server.BuildInfo{
		Version: getenvDefault("PDC_VERSION", "dev"),
		Commit:  getenvDefault("PDC_COMMIT", "unknown"),
	}

	// Blob store: local disk by default, S3-compatible if an endpoint is
	// configured. Either way the contents are disposable.
	blobs, err := buildStore()
	if err != nil {
		log.Printf("service=backend msg=%q err=%v", "store_init_failed", err)
		os.Exit(1)
	}

	// Background sweeper catches blobs orphaned by crashed requests.
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	go store.StartSweeper(sweepCtx, blobs, store.SweepConfig{
		Enabled:  getenvDefault("PDC_SWEEP_ENABLED", "true") == "true",
		Interval: getenvDuration("PDC_SWEEP_INTERVAL", 5*time.Minute),
		MaxAge:   getenvDuration("PDC_SWEEP_MAX_AGE", 15*time.Minute),
	})

	srv := server.New(server.Config{
		Addr:         addr,
		Build:        build,
		Store:        blobs,
		MaxFileBytes: getenvInt64("PDC_MAX_FILE_BYTES", 50<<20),
		MaxFiles:     getenvInt("PDC_MAX_FILES", 50),
		MergeWorkers: getenvInt("PDC_MERGE_WORKERS", 4),
		OutputGrace:  getenvDuration("PDC_OUTPUT_GRACE", time.Minute),
		RateLimit:    getenvInt("PDC_RATE_LIMIT", 0),
	})

	// Start the HTTP server in a background goroutine.
	// This allows us to listen for OS signals while the server runs.
	errCh := make(chan error, 1)
	go func() {
		log.Printf("service=backend msg=%q addr=%s version=%s commit=%s",
			"starting", addr, build.Version, build.Commit)
		errCh <- srv.Start()
	}()

	// Set up signal handling for graceful shutdown on SIGINT (Ctrl+C) or SIGTERM (container stop).
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Block until either a shutdown signal is received or the server encounters an error.
	select {
	case sig := <-sigCh:
		// Signal received: initiate graceful shutdown.
		log.Printf("service=backend msg=%q signal=%s", "shutting_down", sig.String())
		sweepCancel()
		// Give the server 5 seconds to finish in-flight requests.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("service=backend msg=%q err=%v", "shutdown_error", err)
			os.Exit(1)
		}
		log.Printf("service=backend msg=%q", "shutdown_complete")
	case err := <-errCh:
		// Server error: exit immediately.
		if err != nil {
			log.Printf("service=backend msg=%q err=%v", "server_error", err)
			os.Exit(1)
		}
	}
}

// buildStore picks the blob backend from the environment. Setting
// PDC_S3_ENDPOINT switches from the local disk spool to an S3-compatible
// object store (MinIO or similar).
func buildStore() (store.Store, error) {
	if endpoint := os.Getenv("PDC_S3_ENDPOINT"); endpoint != "" {
		return store.NewMinio(store.MinioConfig{
			Endpoint:  endpoint,
			AccessKey: os.Getenv("PDC_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("PDC_S3_SECRET_KEY"),
			Bucket:    getenvDefault("PDC_S3_BUCKET", "pdfcollate"),
		})
	}
	return store.NewDisk(getenvDefault("PDC_STORE_DIR", os.TempDir()+"/pdfcollate"))
}

// getenvDefault reads an environment variable and returns a default value if not set.
// This helper avoids importing extra packages and keeps main.go self-contained.
func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("service=backend msg=%q key=%s value=%q", "bad_env_int_using_default", key, v)
		return def
	}
	return n
}

func getenvInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Printf("service=backend msg=%q key=%s value=%q", "bad_env_int_using_default", key, v)
		return def
	}
	return n
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("service=backend msg=%q key=%s value=%q", "bad_env_duration_using_default", key, v)
		return def
	}
	return d
}
