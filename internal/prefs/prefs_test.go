package prefs

import (
	"context"
	"testing"
	"time"

	database "github.com/MasterOfPuppets/wradio/internal/db"
	"github.com/MasterOfPuppets/wradio/internal/models"
)

func setupStore(t *testing.T, defaultBuffer int) *Store {
	t.Helper()
	client := database.NewInMemory()
	client.AutoMigrate()
	// shared-cache memory DB survives between tests in this package
	if err := client.DB.Where("1 = 1").Delete(&models.PlayerPrefs{}).Error; err != nil {
		t.Fatalf("reset prefs: %v", err)
	}
	return New(client.DB, defaultBuffer)
}

func recvValue(t *testing.T, ch <-chan int) int {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for prefs value")
		return 0
	}
}

func TestNewCreatesSingletonRow(t *testing.T) {
	store := setupStore(t, 30)

	var row models.PlayerPrefs
	if err := store.db.First(&row, 1).Error; err != nil {
		t.Fatalf("singleton row missing: %v", err)
	}
	if row.BufferSeconds != 30 {
		t.Errorf("BufferSeconds = %d, want 30", row.BufferSeconds)
	}
	if got := store.BufferSeconds(); got != 30 {
		t.Errorf("BufferSeconds() = %d, want 30", got)
	}
}

func TestNewKeepsExistingRow(t *testing.T) {
	store := setupStore(t, 30)
	if err := store.SetBufferSeconds(90); err != nil {
		t.Fatalf("SetBufferSeconds: %v", err)
	}

	// A second startup with a different default must not clobber the
	// persisted value.
	again := New(store.db, 15)
	if got := again.BufferSeconds(); got != 90 {
		t.Errorf("BufferSeconds() after restart = %d, want 90", got)
	}
}

func TestSetAndWatch(t *testing.T) {
	store := setupStore(t, 30)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := store.Watch(ctx)

	if got := recvValue(t, ch); got != 30 {
		t.Fatalf("initial emit = %d, want 30", got)
	}

	if err := store.SetBufferSeconds(45); err != nil {
		t.Fatalf("SetBufferSeconds: %v", err)
	}
	if got := recvValue(t, ch); got != 45 {
		t.Errorf("emit after change = %d, want 45", got)
	}
	if got := store.BufferSeconds(); got != 45 {
		t.Errorf("BufferSeconds() = %d, want 45", got)
	}
}

func TestWatchKeepsLatestForSlowReader(t *testing.T) {
	store := setupStore(t, 30)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := store.Watch(ctx)

	// Reader never drained the initial value; intermediate updates may be
	// dropped but the newest must win.
	for _, v := range []int{10, 20, 60} {
		if err := store.SetBufferSeconds(v); err != nil {
			t.Fatalf("SetBufferSeconds(%d): %v", v, err)
		}
	}
	if got := recvValue(t, ch); got != 60 {
		t.Errorf("latest value = %d, want 60", got)
	}
}

func TestReset(t *testing.T) {
	store := setupStore(t, 30)
	if err := store.SetBufferSeconds(120); err != nil {
		t.Fatalf("SetBufferSeconds: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := store.Watch(ctx)
	recvValue(t, ch) // drain the initial 120

	if err := store.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if got := store.BufferSeconds(); got != 30 {
		t.Errorf("BufferSeconds() after reset = %d, want 30", got)
	}
	if got := recvValue(t, ch); got != 30 {
		t.Errorf("emit after reset = %d, want 30", got)
	}
}

func TestWatchSeesSetRacingSubscription(t *testing.T) {
	store := setupStore(t, 30)

	// A write landing while the watcher subscribes must reach it either as
	// the initial value or as a notification.
	for i := 0; i < 50; i++ {
		want := 100 + i
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan struct{})
		go func() {
			if err := store.SetBufferSeconds(want); err != nil {
				t.Errorf("SetBufferSeconds: %v", err)
			}
			close(done)
		}()
		ch := store.Watch(ctx)
		<-done

		deadline := time.After(2 * time.Second)
		for got := recvValue(t, ch); got != want; {
			select {
			case got = <-ch:
			case <-deadline:
				t.Fatalf("iteration %d: watcher never saw %d, last %d", i, want, got)
			}
		}
		cancel()
	}
}

func TestWatchUnsubscribesOnCancel(t *testing.T) {
	store := setupStore(t, 30)

	ctx, cancel := context.WithCancel(context.Background())
	ch := store.Watch(ctx)
	recvValue(t, ch)
	cancel()

	// Give the cleanup goroutine a moment to remove the sub.
	deadline := time.Now().Add(2 * time.Second)
	for {
		store.mu.Lock()
		n := len(store.subs)
		store.mu.Unlock()
		if n == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("subscription not removed after cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := store.SetBufferSeconds(77); err != nil {
		t.Fatalf("SetBufferSeconds: %v", err)
	}
	select {
	case v := <-ch:
		t.Errorf("received %d on cancelled watch", v)
	case <-time.After(50 * time.Millisecond):
	}
}
