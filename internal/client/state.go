package client

import (
	"context"
	"sync"

	"github.com/MasterOfPuppets/wradio/internal/models"
)

// PlayerState is the single snapshot every UI consumer renders from.
// IsPlaying and IsBuffering are never both true.
type PlayerState struct {
	Station     *models.Station `json:"station,omitempty"`
	IsPlaying   bool            `json:"is_playing"`
	IsBuffering bool            `json:"is_buffering"`
	ErrorMsg    string          `json:"error_msg,omitempty"`
	Metadata    string          `json:"metadata,omitempty"`
}

// stateCell is a versioned snapshot holder: one writer (the client's event
// handler), any number of readers. Every update replaces the whole snapshot
// so readers never observe a half-applied change; watchers get latest-wins
// delivery and can never block the writer.
type stateCell struct {
	mu      sync.RWMutex
	val     PlayerState
	version uint64
	subs    map[int]chan PlayerState
	nextID  int
}

func newStateCell() *stateCell {
	return &stateCell{subs: make(map[int]chan PlayerState)}
}

func (c *stateCell) Get() PlayerState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.val
}

// Update applies fn to a copy of the current snapshot and publishes the
// result as a new version.
func (c *stateCell) Update(fn func(PlayerState) PlayerState) {
	c.mu.Lock()
	c.val = fn(c.val)
	c.version++
	snapshot := c.val
	subs := make([]chan PlayerState, 0, len(c.subs))
	for _, ch := range c.subs {
		subs = append(subs, ch)
	}
	c.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

// Watch emits the current snapshot immediately, then every replacement
// until ctx is done. Slow readers skip intermediate versions, never the
// latest.
func (c *stateCell) Watch(ctx context.Context) <-chan PlayerState {
	ch := make(chan PlayerState, 1)

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	ch <- c.val
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}()

	return ch
}
