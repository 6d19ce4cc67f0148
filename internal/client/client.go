// Package client is the foreground-facing playback session client: it owns
// the connection to the engine's control session, republishes engine events
// as PlayerState snapshots, and translates player errors into user-facing
// messages.
package client

import (
	"context"
	"strings"
	"sync"

	"github.com/MasterOfPuppets/wradio/internal/engine"
	"github.com/MasterOfPuppets/wradio/internal/models"
	"github.com/MasterOfPuppets/wradio/internal/player"
)

// ControlSession is the slice of the engine session the client drives.
type ControlSession interface {
	SetQueue(items []player.MediaItem, startIndex int, positionMs int64)
	Prepare()
	Play()
	Pause()
	Stop()
	Position() int64
	AddListener(l player.Listener) (remove func())
}

// SessionProvider resolves the control session. The real provider is the
// engine service; tests substitute fakes.
type SessionProvider interface {
	Connect(ctx context.Context) (ControlSession, error)
}

type engineProvider struct {
	svc *engine.Service
}

func (p engineProvider) Connect(ctx context.Context) (ControlSession, error) {
	s, err := p.svc.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return s, nil
}

type connectAttempt struct {
	done    chan struct{}
	session ControlSession
	err     error
}

type Client struct {
	provider SessionProvider
	cell     *stateCell

	mu      sync.Mutex
	session ControlSession
	pending *connectAttempt

	plMu     sync.Mutex
	playlist []models.Station
}

func New(provider SessionProvider) *Client {
	return &Client{
		provider: provider,
		cell:     newStateCell(),
	}
}

// NewWithEngine wires the client straight to an in-process engine service.
func NewWithEngine(svc *engine.Service) *Client {
	return New(engineProvider{svc: svc})
}

// State returns the current snapshot.
func (c *Client) State() PlayerState {
	return c.cell.Get()
}

// Watch streams snapshots: the current one immediately, then every change.
func (c *Client) Watch(ctx context.Context) <-chan PlayerState {
	return c.cell.Watch(ctx)
}

// CurrentStationUUID returns the uuid of the published station, or "".
func (c *Client) CurrentStationUUID() string {
	if st := c.cell.Get().Station; st != nil {
		return st.UUID
	}
	return ""
}

// ClearError clears only the error field; every other field is untouched.
func (c *Client) ClearError() {
	c.cell.Update(func(s PlayerState) PlayerState {
		s.ErrorMsg = ""
		return s
	})
}

// getSession establishes the connection lazily and at most once. Concurrent
// callers share the in-flight attempt instead of issuing duplicates; the
// resolved session is cached for the process lifetime and the client's
// listener attached exactly once.
func (c *Client) getSession(ctx context.Context) (ControlSession, error) {
	c.mu.Lock()
	if c.session != nil {
		s := c.session
		c.mu.Unlock()
		return s, nil
	}

	attempt := c.pending
	if attempt == nil {
		attempt = &connectAttempt{done: make(chan struct{})}
		c.pending = attempt
		go c.connect(attempt)
	}
	c.mu.Unlock()

	select {
	case <-attempt.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return attempt.session, attempt.err
}

func (c *Client) connect(attempt *connectAttempt) {
	// Deliberately not bound to any single caller's context: the first
	// caller may give up while others still wait on the same attempt.
	session, err := c.provider.Connect(context.Background())

	c.mu.Lock()
	if err != nil {
		c.pending = nil // a later command retries
	} else {
		c.session = session
		c.pending = nil
		session.AddListener(&clientListener{c: c})
	}
	c.mu.Unlock()

	attempt.session = session
	attempt.err = err
	close(attempt.done)
}

// Play replaces the queue with the given stations and starts playback at
// startIndex. State flips to buffering for the target station immediately;
// stale errors and now-playing text are cleared.
func (c *Client) Play(ctx context.Context, stations []models.Station, startIndex int) error {
	if len(stations) == 0 {
		return nil
	}
	if startIndex < 0 || startIndex >= len(stations) {
		startIndex = 0
	}

	session, err := c.getSession(ctx)
	if err != nil {
		return err
	}

	c.setPlaylist(stations)
	target := stations[startIndex]
	c.cell.Update(func(s PlayerState) PlayerState {
		s.Station = &target
		s.IsBuffering = true
		s.ErrorMsg = ""
		s.Metadata = ""
		return s
	})

	session.SetQueue(mediaItems(stations), startIndex, 0)
	session.Prepare()
	session.Play()
	return nil
}

// PlayOne is the single-station convenience form.
func (c *Client) PlayOne(ctx context.Context, st models.Station) error {
	return c.Play(ctx, []models.Station{st}, 0)
}

func (c *Client) Resume(ctx context.Context) error {
	session, err := c.getSession(ctx)
	if err != nil {
		return err
	}
	session.Play()
	return nil
}

func (c *Client) Pause(ctx context.Context) error {
	session, err := c.getSession(ctx)
	if err != nil {
		return err
	}
	session.Pause()
	return nil
}

// Stop halts the engine and forces the local flags down without waiting for
// the engine's own confirmation event.
func (c *Client) Stop(ctx context.Context) error {
	session, err := c.getSession(ctx)
	if err != nil {
		return err
	}
	session.Stop()
	c.cell.Update(func(s PlayerState) PlayerState {
		s.IsPlaying = false
		s.IsBuffering = false
		return s
	})
	return nil
}

// UpdatePlaylistContext swaps the queue for a new station list while one of
// its stations is already playing: the playing index is re-found by uuid
// and the current position preserved, without interrupting playback. A uuid
// missing from the new list makes this a no-op.
func (c *Client) UpdatePlaylistContext(ctx context.Context, stations []models.Station, currentUUID string) error {
	newIndex := -1
	for i, st := range stations {
		if st.UUID == currentUUID {
			newIndex = i
			break
		}
	}
	if newIndex == -1 {
		return nil
	}

	session, err := c.getSession(ctx)
	if err != nil {
		return err
	}

	c.setPlaylist(stations)
	session.SetQueue(mediaItems(stations), newIndex, session.Position())
	return nil
}

func (c *Client) setPlaylist(stations []models.Station) {
	c.plMu.Lock()
	c.playlist = append([]models.Station(nil), stations...)
	c.plMu.Unlock()
}

func (c *Client) findInPlaylist(uuid string) *models.Station {
	c.plMu.Lock()
	defer c.plMu.Unlock()
	for i := range c.playlist {
		if c.playlist[i].UUID == uuid {
			st := c.playlist[i]
			return &st
		}
	}
	return nil
}

func mediaItems(stations []models.Station) []player.MediaItem {
	items := make([]player.MediaItem, len(stations))
	for i, st := range stations {
		items[i] = mediaItem(st)
	}
	return items
}

func mediaItem(st models.Station) player.MediaItem {
	cleanURL := st.StreamURL
	// The engine cannot resolve shoutcast pseudo-schemes.
	if strings.HasPrefix(cleanURL, "icy://") {
		cleanURL = "http://" + strings.TrimPrefix(cleanURL, "icy://")
	} else if strings.HasPrefix(cleanURL, "icyx://") {
		cleanURL = "http://" + strings.TrimPrefix(cleanURL, "icyx://")
	}

	return player.MediaItem{
		URI: cleanURL,
		Metadata: player.ItemMetadata{
			Title:  st.Name,
			Extras: map[string]string{player.MetaStationUUID: st.UUID},
		},
	}
}

// clientListener applies engine events to the published snapshot, in the
// order the player raised them.
type clientListener struct {
	c *Client
}

func (l *clientListener) OnIsPlayingChanged(isPlaying bool) {
	l.c.cell.Update(func(s PlayerState) PlayerState {
		s.IsPlaying = isPlaying
		return s
	})
}

func (l *clientListener) OnPlaybackStateChanged(state player.State) {
	buffering := state == player.StateBuffering
	l.c.cell.Update(func(s PlayerState) PlayerState {
		s.IsBuffering = buffering
		return s
	})
}

func (l *clientListener) OnPlayerError(err *player.Error) {
	msg := userFriendlyError(err)
	l.c.cell.Update(func(s PlayerState) PlayerState {
		s.IsPlaying = false
		s.IsBuffering = false
		s.ErrorMsg = msg
		return s
	})
}

func (l *clientListener) OnItemTransition(item *player.MediaItem, _ player.TransitionReason) {
	if item == nil {
		return
	}
	uuid := item.Metadata.Extras[player.MetaStationUUID]
	station := l.c.findInPlaylist(uuid)
	if station == nil {
		return
	}
	l.c.cell.Update(func(s PlayerState) PlayerState {
		s.Station = station
		// A station switch invalidates stale now-playing text.
		s.Metadata = ""
		s.ErrorMsg = ""
		return s
	})
}

func (l *clientListener) OnItemMetadataChanged(meta player.ItemMetadata) {
	current := l.c.cell.Get()

	stationName := ""
	if current.Station != nil {
		stationName = current.Station.Name
	}

	// Prefer a title that is not just the station name echoed back, then
	// the artist line, then the generic display title.
	var text string
	switch {
	case meta.Title != "" && meta.Title != stationName:
		text = meta.Title
	case meta.Artist != "":
		text = meta.Artist
	case meta.DisplayTitle != "":
		text = meta.DisplayTitle
	}

	if text == current.Metadata {
		return
	}
	l.c.cell.Update(func(s PlayerState) PlayerState {
		s.Metadata = text
		return s
	})
}

func (l *clientListener) OnIcyMetadata(string) {
	// The engine folds ICY titles back into item metadata; the client sees
	// them via OnItemMetadataChanged.
}
