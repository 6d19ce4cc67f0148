package engine

import (
	"log"
	"math"
	"sync"
	"time"
)

// MinListenThreshold separates "sampled" from "listened": shorter sessions
// never touch the statistics.
const MinListenThreshold = 60 * time.Second

// Tracker is the listening-session state machine. Idle until playback
// starts, Tracking while a station plays, and back to Idle on stop or on a
// track skip (which closes the old session and opens a fresh one).
//
// Handle* methods are invoked from the player's event goroutine only; the
// accounting write runs fire-and-forget on its own goroutine. Nobody awaits
// it and its failure is deliberately unobservable.
type Tracker struct {
	store StationStore
	now   func() time.Time

	currentUUID string // last item transition seen
	tracking    bool
	sessionUUID string
	startedAt   time.Time

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewTracker(store StationStore) *Tracker {
	return &Tracker{
		store: store,
		now:   time.Now,
	}
}

// HandleItemTransition records the item now loaded. If a session is open
// the player skipped tracks while playing: close the old session and start
// a new one immediately so no time leaks onto the wrong station.
func (t *Tracker) HandleItemTransition(uuid string) {
	if t.tracking {
		t.closeSession()
		t.openSession(uuid)
	}
	t.currentUUID = uuid
}

func (t *Tracker) HandlePlayingChanged(isPlaying bool) {
	if isPlaying {
		t.openSession(t.currentUUID)
		return
	}
	if t.tracking {
		t.closeSession()
	}
}

func (t *Tracker) openSession(uuid string) {
	t.tracking = true
	t.sessionUUID = uuid
	t.startedAt = t.now()
}

func (t *Tracker) closeSession() {
	t.tracking = false
	uuid := t.sessionUUID
	t.sessionUUID = ""

	if uuid == "" || t.startedAt.IsZero() {
		return
	}

	stoppedAt := t.now()
	duration := stoppedAt.Sub(t.startedAt)
	t.startedAt = time.Time{}

	if duration < MinListenThreshold {
		sessionsDiscarded.Inc()
		return
	}

	minutes := int64(math.Round(float64(duration.Milliseconds()) / 60000.0))
	if minutes < 1 {
		return
	}

	t.recordAsync(uuid, minutes, stoppedAt)
}

// recordAsync applies the statistics update in the background. A station
// deleted mid-session is skipped, never recreated; write failures are
// logged and dropped.
func (t *Tracker) recordAsync(uuid string, minutes int64, stoppedAt time.Time) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.wg.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.wg.Done()

		st, err := t.store.Get(uuid)
		if err != nil {
			log.Printf("⚠️ Stats lookup failed for %s: %v", uuid, err)
			return
		}
		if st == nil {
			log.Printf("⚠️ Station %s not found in library. Stats ignored.", uuid)
			return
		}

		st.TotalPlayTime += minutes
		lastPlayed := stoppedAt.UnixMilli()
		st.LastPlayed = &lastPlayed

		if err := t.store.Save(*st); err != nil {
			log.Printf("⚠️ Stats write failed for %s: %v", uuid, err)
			return
		}
		sessionsRecorded.Inc()
		minutesAccrued.Add(float64(minutes))
	}()
}

// Close stops accepting new accounting work and waits for in-flight writes.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.wg.Wait()
}
