package inmem

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sou1nonly/relocation-chatbot/internal/db"
)

func TestStore_SetGetDel(t *testing.T) {
	s := NewStore(0)
	ctx := context.Background()

	if _, err := s.Get(ctx, "k"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	if err := s.Set(ctx, "k", []byte("v1")); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil || string(got) != "v1" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if err := s.Del(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound after Del, got %v", err)
	}
}

func TestStore_CopiesValues(t *testing.T) {
	s := NewStore(0)
	ctx := context.Background()

	in := []byte("abc")
	_ = s.Set(ctx, "k", in)
	in[0] = 'z'

	out, _ := s.Get(ctx, "k")
	if string(out) != "abc" {
		t.Errorf("stored value mutated through caller slice: %q", out)
	}
	out[1] = 'z'
	again, _ := s.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored value mutated through returned slice: %q", again)
	}
}

func TestStore_TTL(t *testing.T) {
	s := NewStore(time.Hour)
	t.Cleanup(s.Close)
	ctx := context.Background()

	_ = s.SetWithTTL(ctx, "short", []byte("x"), 20*time.Millisecond)
	_ = s.SetWithTTL(ctx, "forever", []byte("y"), 0)

	time.Sleep(60 * time.Millisecond)

	if _, err := s.Get(ctx, "short"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expired key still readable: %v", err)
	}
	if v, err := s.Get(ctx, "forever"); err != nil || string(v) != "y" {
		t.Errorf("Get(forever) = %q, %v", v, err)
	}
}

func TestStore_Ping(t *testing.T) {
	s := NewStore(0)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.WaitForReady(ctx, time.Second); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestStore_SweeperRemovesExpiredAndStopsOnClose(t *testing.T) {
	s := NewStore(5 * time.Millisecond)
	ctx := context.Background()

	_ = s.SetWithTTL(ctx, "short", []byte("x"), time.Millisecond)
	_ = s.Set(ctx, "kept", []byte("y"))

	deadline := time.Now().Add(time.Second)
	for s.Len() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := s.Len(); got != 1 {
		t.Fatalf("Len = %d after sweep, want 1", got)
	}

	s.Close()
	select {
	case <-s.done:
	default:
		t.Fatal("sweeper still running after Close")
	}
	s.Close()
	if got := s.Len(); got != 0 {
		t.Errorf("Len = %d after Close, want 0", got)
	}
}

func TestStore_NoSweeperWithoutInterval(t *testing.T) {
	s := NewStore(0)
	if s.stop != nil || s.done != nil {
		t.Error("zero interval must not start a sweeper")
	}
	s.Close()
}
