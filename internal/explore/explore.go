// Package explore classifies remote directory results against the local
// library and exposes the search flow as a sealed state machine.
package explore

import (
	"context"
	"strings"
	"sync"

	"github.com/MasterOfPuppets/wradio/internal/models"
)

// Status is the computed relationship between a remote result and the
// local library.
type Status string

const (
	// StatusNotSaved means no local record shares the uuid.
	StatusNotSaved Status = "not_saved"
	// StatusSaved means a local record exists and both name and stream URL match.
	StatusSaved Status = "saved"
	// StatusConflict means a local record exists but name or URL differs.
	StatusConflict Status = "conflict"
)

// StationStatus pairs a remote result with its local status.
type StationStatus struct {
	Station models.Station `json:"station"`
	Status  Status         `json:"status"`
}

// UIState is the sealed explore state. Exactly one of the concrete types
// below is published at a time; consumers switch exhaustively.
type UIState interface {
	isExploreState()
}

type Idle struct{}

type Loading struct{}

type Success struct {
	Stations []StationStatus `json:"stations"`
}

// NoResults is a successful search that matched nothing. It is distinct
// from a network failure.
type NoResults struct {
	Query string `json:"query"`
}

type NetworkError struct {
	Message string `json:"message"`
}

func (Idle) isExploreState()         {}
func (Loading) isExploreState()      {}
func (Success) isExploreState()      {}
func (NoResults) isExploreState()    {}
func (NetworkError) isExploreState() {}

// StationSource is the repository slice the controller consumes.
type StationSource interface {
	WatchAll(ctx context.Context) <-chan []models.Station
	SearchRemote(ctx context.Context, query string) ([]models.Station, error)
	Save(st models.Station) error
	All() ([]models.Station, error)
}

// Player is the playback client slice the controller drives.
type Player interface {
	PlayOne(ctx context.Context, st models.Station) error
	UpdatePlaylistContext(ctx context.Context, stations []models.Station, currentUUID string) error
	CurrentStationUUID() string
}

type Controller struct {
	source StationSource
	player Player

	mu       sync.Mutex
	remote   []models.Station
	local    []models.Station
	override UIState // Loading / NoResults / NetworkError, nil when showing results
	subs     map[int]chan UIState
	nextID   int
}

// New starts the controller. It recomputes and republishes whenever either
// the local library or the remote result set changes, until ctx is done.
func New(ctx context.Context, source StationSource, player Player) *Controller {
	c := &Controller{
		source: source,
		player: player,
		subs:   make(map[int]chan UIState),
	}

	localCh := source.WatchAll(ctx)
	go func() {
		for list := range localCh {
			c.mu.Lock()
			c.local = list
			c.publishLocked()
			c.mu.Unlock()
		}
	}()

	return c
}

// State returns the current sealed state.
func (c *Controller) State() UIState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Watch emits the current state immediately, then on every recomputation.
func (c *Controller) Watch(ctx context.Context) <-chan UIState {
	ch := make(chan UIState, 1)

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	ch <- c.stateLocked()
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}()

	return ch
}

// Search runs the remote query. Blank queries are ignored.
func (c *Controller) Search(ctx context.Context, query string) {
	if strings.TrimSpace(query) == "" {
		return
	}

	c.mu.Lock()
	c.override = Loading{}
	c.publishLocked()
	c.mu.Unlock()

	results, err := c.source.SearchRemote(ctx, query)

	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case err != nil:
		c.override = NetworkError{Message: err.Error()}
		c.remote = nil
	case len(results) == 0:
		c.override = NoResults{Query: query}
		c.remote = nil
	default:
		c.override = nil
		c.remote = results
	}
	c.publishLocked()
}

// Preview plays a remote station without saving it.
func (c *Controller) Preview(ctx context.Context, st models.Station) error {
	return c.player.PlayOne(ctx, st)
}

// Import saves a remote station locally. If that station is the one
// currently playing, the engine queue is re-issued from the saved list so
// the playing item gains its library context without a restart.
func (c *Controller) Import(ctx context.Context, st models.Station) error {
	if err := c.source.Save(st); err != nil {
		return err
	}
	if c.player.CurrentStationUUID() == st.UUID {
		all, err := c.source.All()
		if err != nil {
			return err
		}
		return c.player.UpdatePlaylistContext(ctx, all, st.UUID)
	}
	return nil
}

func (c *Controller) stateLocked() UIState {
	if c.override != nil {
		return c.override
	}
	if len(c.remote) == 0 {
		return Idle{}
	}

	wrappers := make([]StationStatus, 0, len(c.remote))
	for _, remote := range c.remote {
		wrappers = append(wrappers, StationStatus{
			Station: remote,
			Status:  classify(remote, c.local),
		})
	}
	return Success{Stations: wrappers}
}

func classify(remote models.Station, local []models.Station) Status {
	for _, l := range local {
		if l.UUID != remote.UUID {
			continue
		}
		if l.StreamURL != remote.StreamURL || l.Name != remote.Name {
			return StatusConflict
		}
		return StatusSaved
	}
	return StatusNotSaved
}

func (c *Controller) publishLocked() {
	state := c.stateLocked()
	for _, ch := range c.subs {
		select {
		case ch <- state:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- state:
			default:
			}
		}
	}
}
