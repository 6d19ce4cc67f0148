// Package prefs persists player settings in a singleton database row and
// lets interested components watch for changes.
package prefs

import (
	"context"
	"log"
	"sync"

	"gorm.io/gorm"

	"github.com/MasterOfPuppets/wradio/internal/models"
)

type Store struct {
	db       *gorm.DB
	defaults models.PlayerPrefs

	mu     sync.Mutex
	subs   map[int]chan int
	nextID int
}

func New(db *gorm.DB, defaultBufferSeconds int) *Store {
	s := &Store{
		db:       db,
		defaults: models.PlayerPrefs{ID: 1, BufferSeconds: defaultBufferSeconds},
		subs:     make(map[int]chan int),
	}

	// Ensure the singleton row exists on startup
	var existing models.PlayerPrefs
	if err := db.First(&existing, 1).Error; err != nil {
		if err := db.Create(&s.defaults).Error; err != nil {
			log.Printf("⚠️ Prefs init failed: %v", err)
		}
	}
	return s
}

// BufferSeconds returns the configured stream pre-buffer length.
func (s *Store) BufferSeconds() int {
	var row models.PlayerPrefs
	if err := s.db.First(&row, 1).Error; err != nil {
		return s.defaults.BufferSeconds
	}
	return row.BufferSeconds
}

func (s *Store) SetBufferSeconds(seconds int) error {
	err := s.db.Model(&models.PlayerPrefs{ID: 1}).Update("buffer_seconds", seconds).Error
	if err != nil {
		return err
	}
	s.notify(seconds)
	return nil
}

// Reset restores every setting to its default value.
func (s *Store) Reset() error {
	row := s.defaults
	err := s.db.Model(&models.PlayerPrefs{ID: 1}).Updates(map[string]interface{}{
		"buffer_seconds": row.BufferSeconds,
	}).Error
	if err != nil {
		return err
	}
	s.notify(row.BufferSeconds)
	return nil
}

// Watch emits the current buffer-seconds value immediately, then again after
// every change. The channel never blocks the writer: slow readers only ever
// miss intermediate values, not the latest one.
func (s *Store) Watch(ctx context.Context) <-chan int {
	ch := make(chan int, 1)

	// Register before reading the initial value, and read it under the same
	// lock notify takes: a concurrent Set either lands in the initial read or
	// is delivered as a notification, never lost between the two.
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	ch <- s.BufferSeconds()
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}()

	return ch
}

func (s *Store) notify(v int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- v:
		default:
			// drop the stale pending value, keep the newest
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}
