// Package engine hosts the background playback service: one shared player
// for the process lifetime, one control session, and the listening tracker
// that turns play/stop events into station statistics.
package engine

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/MasterOfPuppets/wradio/internal/models"
	"github.com/MasterOfPuppets/wradio/internal/player"
)

// StationStore is the slice of the repository the engine needs for
// statistics accounting.
type StationStore interface {
	Get(uuid string) (*models.Station, error)
	Save(st models.Station) error
}

var ErrDestroyed = errors.New("engine destroyed")

type Service struct {
	player  player.Player
	tracker *Tracker

	mu             sync.Mutex
	session        *Session
	removeListener func()
	ready          chan struct{}
	destroyed      bool
}

func New(p player.Player, store StationStore) *Service {
	return &Service{
		player:  p,
		tracker: NewTracker(store),
		ready:   make(chan struct{}),
	}
}

// Create builds the control session bound to the shared player and
// registers the engine's internal event listener. Safe to call once.
func (s *Service) Create() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil || s.destroyed {
		return
	}
	s.session = &Session{player: s.player}
	s.removeListener = s.player.AddListener(&engineListener{svc: s})
	close(s.ready)
	log.Println("🎛️ Playback engine ready")
}

// GetSession returns the existing control session. It never creates one:
// there is exactly one session per process.
func (s *Service) GetSession() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Connect resolves the control session, waiting for the engine to come up
// if needed. This is the out-of-process session-token handshake collapsed
// into one process: resolution is still asynchronous from the caller's view.
func (s *Service) Connect(ctx context.Context) (*Session, error) {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, ErrDestroyed
	}
	return s.session, nil
}

// Destroy tears the engine down: listener first, then player, then session,
// and finally any in-flight accounting work. Idempotent, safe with no
// active session.
func (s *Service) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	remove := s.removeListener
	hadSession := s.session != nil
	s.removeListener = nil
	s.session = nil
	s.mu.Unlock()

	if remove != nil {
		remove()
	}
	if hadSession {
		s.player.Release()
	}
	s.tracker.Close()
}

// engineListener is the engine's own view of player events: it feeds the
// listening tracker and folds ICY titles back into the current item's
// metadata so clients see them as ordinary metadata changes.
type engineListener struct {
	svc *Service
}

func (e *engineListener) OnIsPlayingChanged(isPlaying bool) {
	if isPlaying {
		stationsPlayed.Inc()
	}
	e.svc.tracker.HandlePlayingChanged(isPlaying)
}

func (e *engineListener) OnItemTransition(item *player.MediaItem, _ player.TransitionReason) {
	uuid := ""
	if item != nil {
		uuid = item.Metadata.Extras[player.MetaStationUUID]
	}
	e.svc.tracker.HandleItemTransition(uuid)
}

func (e *engineListener) OnPlayerError(err *player.Error) {
	playerErrors.WithLabelValues(err.Code.Name()).Inc()
	log.Printf("⚠️ Player error: %s - %s", err.Code.Name(), err.Message)
}

func (e *engineListener) OnPlaybackStateChanged(player.State) {}

func (e *engineListener) OnItemMetadataChanged(player.ItemMetadata) {}

// OnIcyMetadata rewrites the current item so the in-stream title becomes
// the item title and the station name survives as the artist line. The
// rewrite is posted off the event path: ReplaceItem re-enters the player.
func (e *engineListener) OnIcyMetadata(title string) {
	if title == "" {
		return
	}
	go e.svc.applyIcyTitle(title)
}

func (s *Service) applyIcyTitle(title string) {
	item := s.player.CurrentItem()
	if item == nil || item.Metadata.Title == title {
		return
	}

	meta := item.Metadata
	if meta.Artist == "" {
		meta.Artist = meta.Title
	}
	meta.Title = title
	updated := *item
	updated.Metadata = meta
	s.player.ReplaceItem(s.player.CurrentIndex(), updated)
}
