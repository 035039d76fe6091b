package store

import (
	"bytes"
	"context"
	"testing"
	"time"

	"newsforge/internal/config"
)

func TestMemoryRoundtrip(t *testing.T) {
	s := NewMemory(time.Minute)
	defer s.Close()
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, found, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !found || !bytes.Equal(got, []byte("v")) {
		t.Fatalf("got %q found=%v", got, found)
	}

	if _, found, _ := s.Get(ctx, "missing"); found {
		t.Fatal("missing key reported as found")
	}
}

func TestMemoryExpiry(t *testing.T) {
	s := NewMemory(time.Minute)
	defer s.Close()
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	if _, found, _ := s.Get(ctx, "k"); found {
		t.Fatal("expired key still readable")
	}
	if err := s.ClearExpired(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
}

func TestNewSelectsBackend(t *testing.T) {
	s, err := New(config.StoreConfig{Type: "memory", TTL: "1h"})
	if err != nil {
		t.Fatalf("memory store: %v", err)
	}
	s.Close()

	if _, err := New(config.StoreConfig{Type: "bogus"}); err == nil {
		t.Fatal("expected an error for an unknown store type")
	}
}
