package db

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 8 * time.Second}
	for i, w := range want {
		if got := backoff(i + 1); got != w {
			t.Fatalf("attempt %d: got %s want %s", i+1, got, w)
		}
	}
}

func TestNewPool_BadURL(t *testing.T) {
	_, err := NewPool(context.Background(), "postgres://%zz", 3)
	if err == nil || !strings.Contains(err.Error(), "parse database url") {
		t.Fatalf("got %v", err)
	}
}

func TestNewPool_StopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	// nothing listens on port 1
	_, err := NewPool(ctx, "postgres://u:p@127.0.0.1:1/db?sslmode=disable&connect_timeout=1", 5)
	if err == nil {
		t.Fatal("expected connect error")
	}
}
