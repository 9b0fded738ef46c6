package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStartSweeperRemovesAgedBlobs(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDisk(dir)
	if err != nil {
		t.Fatalf("NewDisk() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handle, err := d.Put(ctx, "orphan", "text/plain", strings.NewReader("leftover"))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(filepath.Join(dir, handle), past, past); err != nil {
		t.Fatalf("aging blob: %v", err)
	}

	done := make(chan struct{})
	go func() {
		StartSweeper(ctx, d, SweepConfig{
			Enabled:  true,
			Interval: time.Hour, // the immediate first run does the work
			MaxAge:   30 * time.Minute,
		})
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := d.Open(ctx, handle); err != nil {
			cancel()
			<-done
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("aged blob survived the sweeper's first run")
}

func TestStartSweeperDisabledReturns(t *testing.T) {
	d := newTestDisk(t)

	done := make(chan struct{})
	go func() {
		StartSweeper(context.Background(), d, SweepConfig{Enabled: false})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled sweeper did not return")
	}
}
