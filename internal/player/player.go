// Package player implements the audio player behind the playback engine:
// a queue of media items, one live ICY/HTTP stream at a time, and an
// ordered event feed for listeners. All mutation is serialized through a
// single command goroutine, so callers never race on player state.
package player

import (
	"context"
	"time"
)

// MetaStationUUID keys the station uuid attached to every queued item.
// It is the only way to map an engine-level event back to a Station record.
const MetaStationUUID = "wradio.station_uuid"

type State int

const (
	StateIdle State = iota
	StateBuffering
	StateReady
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateBuffering:
		return "BUFFERING"
	case StateReady:
		return "READY"
	case StateEnded:
		return "ENDED"
	default:
		return "UNKNOWN"
	}
}

type TransitionReason int

const (
	// TransitionQueueChanged fires when a new queue is loaded.
	TransitionQueueChanged TransitionReason = iota
	// TransitionAuto fires when playback advances to the next queued item.
	TransitionAuto
)

// ItemMetadata travels with a queue item. Extras is a string side-channel
// for identifiers that must survive round trips through the engine.
type ItemMetadata struct {
	Title        string
	Artist       string
	DisplayTitle string
	Extras       map[string]string
}

type MediaItem struct {
	URI      string
	Metadata ItemMetadata
}

// Listener receives player events. Handlers are invoked synchronously from
// the player's command goroutine, in the order the events were raised.
type Listener interface {
	OnIsPlayingChanged(isPlaying bool)
	OnPlaybackStateChanged(state State)
	OnPlayerError(err *Error)
	OnItemTransition(item *MediaItem, reason TransitionReason)
	OnItemMetadataChanged(meta ItemMetadata)
	OnIcyMetadata(title string)
}

// Player is the control surface the engine owns. ICYPlayer is the real
// implementation; tests drive fakes.
type Player interface {
	SetQueue(items []MediaItem, startIndex int, positionMs int64)
	Prepare()
	Play()
	Pause()
	Stop()
	ReplaceItem(index int, item MediaItem)
	CurrentItem() *MediaItem
	CurrentIndex() int
	Position() int64
	IsPlaying() bool
	AddListener(l Listener) (remove func())
	Release()
}

// Options configures the real player. BufferSeconds is read at stream start
// so settings changes apply to the next connection.
type Options struct {
	Decoder       string
	LogLevel      string
	FallbackKbps  int
	BufferSeconds func() int
}

type listenerEntry struct {
	id int
	l  Listener
}

type streamHandle struct {
	cancel context.CancelFunc
	gen    int
}

type ICYPlayer struct {
	cmds chan func()
	quit chan struct{}

	opts     Options
	pipeline func(ctx context.Context, item MediaItem, opts pipelineOptions, ev pipelineEvents)

	// Everything below is owned by the run goroutine.
	queue         []MediaItem
	index         int
	state         State
	playing       bool
	playWhenReady bool
	listeners     []listenerEntry
	nextListener  int
	stream        *streamHandle
	streamGen     int
	posAccum      int64
	posStart      time.Time
}

func NewICY(opts Options) *ICYPlayer {
	if opts.Decoder == "" {
		opts.Decoder = "ffplay"
	}
	if opts.FallbackKbps <= 0 {
		opts.FallbackKbps = 128
	}
	if opts.BufferSeconds == nil {
		opts.BufferSeconds = func() int { return 30 }
	}
	p := &ICYPlayer{
		cmds:     make(chan func(), 64),
		quit:     make(chan struct{}),
		opts:     opts,
		pipeline: runPipeline,
		state:    StateIdle,
	}
	go p.run()
	return p
}

func (p *ICYPlayer) run() {
	for {
		select {
		case fn := <-p.cmds:
			fn()
		case <-p.quit:
			if p.stream != nil {
				p.stream.cancel()
				p.stream = nil
			}
			return
		}
	}
}

// post queues work onto the command goroutine. Events raised by the stream
// pipeline arrive the same way, which keeps delivery ordered.
func (p *ICYPlayer) post(fn func()) {
	select {
	case p.cmds <- fn:
	case <-p.quit:
	}
}

func (p *ICYPlayer) call(fn func()) {
	done := make(chan struct{})
	p.post(func() {
		fn()
		close(done)
	})
	select {
	case <-done:
	case <-p.quit:
	}
}

// SetQueue replaces the queue. A live stream survives the swap when the new
// current item is the same source that is already playing, so re-issuing the
// queue around the playing station never interrupts audio; any other swap
// while play is wanted restarts the stream for the new current item.
func (p *ICYPlayer) SetQueue(items []MediaItem, startIndex int, positionMs int64) {
	p.call(func() {
		if startIndex < 0 || startIndex >= len(items) {
			startIndex = 0
		}
		prev := p.current()
		keepStream := p.stream != nil && prev != nil &&
			len(items) > 0 && items[startIndex].URI == prev.URI

		p.queue = items
		p.index = startIndex
		p.posAccum = positionMs
		if p.playing {
			p.posStart = time.Now()
		}

		if cur := p.current(); cur != nil {
			item := *cur
			p.dispatch(func(l Listener) { l.OnItemTransition(&item, TransitionQueueChanged) })
		}

		if keepStream {
			return
		}

		p.cancelStream()
		p.setPlaying(false)
		if p.playWhenReady && len(p.queue) > 0 {
			p.startStream()
			return
		}
		p.setState(StateIdle)
	})
}

func (p *ICYPlayer) Prepare() {
	p.call(func() {
		if len(p.queue) == 0 || p.stream != nil {
			return
		}
		p.startStream()
	})
}

func (p *ICYPlayer) Play() {
	p.call(func() {
		p.playWhenReady = true
		if len(p.queue) == 0 {
			return
		}
		if p.stream == nil {
			p.startStream()
			return
		}
		if p.state == StateReady && !p.playing {
			p.setPlaying(true)
		}
	})
}

func (p *ICYPlayer) Pause() {
	p.call(func() {
		p.playWhenReady = false
		// A live stream has no server-side pause: drop the connection and
		// reconnect on resume.
		p.cancelStream()
		p.setPlaying(false)
	})
}

func (p *ICYPlayer) Stop() {
	p.call(func() {
		p.playWhenReady = false
		p.cancelStream()
		p.setPlaying(false)
		p.posAccum = 0
		p.setState(StateIdle)
	})
}

func (p *ICYPlayer) ReplaceItem(index int, item MediaItem) {
	p.call(func() {
		if index < 0 || index >= len(p.queue) {
			return
		}
		p.queue[index] = item
		if index == p.index {
			meta := item.Metadata
			p.dispatch(func(l Listener) { l.OnItemMetadataChanged(meta) })
		}
	})
}

func (p *ICYPlayer) CurrentItem() *MediaItem {
	var out *MediaItem
	p.call(func() {
		if cur := p.current(); cur != nil {
			item := *cur
			out = &item
		}
	})
	return out
}

func (p *ICYPlayer) CurrentIndex() int {
	var out int
	p.call(func() { out = p.index })
	return out
}

func (p *ICYPlayer) Position() int64 {
	var out int64
	p.call(func() {
		out = p.posAccum
		if p.playing {
			out += time.Since(p.posStart).Milliseconds()
		}
	})
	return out
}

func (p *ICYPlayer) IsPlaying() bool {
	var out bool
	p.call(func() { out = p.playing })
	return out
}

func (p *ICYPlayer) AddListener(l Listener) (remove func()) {
	var id int
	p.call(func() {
		id = p.nextListener
		p.nextListener++
		p.listeners = append(p.listeners, listenerEntry{id: id, l: l})
	})
	return func() {
		p.call(func() {
			for i, e := range p.listeners {
				if e.id == id {
					p.listeners = append(p.listeners[:i], p.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Release stops playback and shuts the command goroutine down. The player
// is unusable afterwards.
func (p *ICYPlayer) Release() {
	p.call(func() {
		p.cancelStream()
		p.playing = false
		p.state = StateIdle
		p.listeners = nil
	})
	close(p.quit)
}

// --- internals, command goroutine only ---

func (p *ICYPlayer) current() *MediaItem {
	if p.index < 0 || p.index >= len(p.queue) {
		return nil
	}
	return &p.queue[p.index]
}

func (p *ICYPlayer) dispatch(fn func(Listener)) {
	for _, e := range p.listeners {
		fn(e.l)
	}
}

func (p *ICYPlayer) setState(s State) {
	if p.state == s {
		return
	}
	p.state = s
	p.dispatch(func(l Listener) { l.OnPlaybackStateChanged(s) })
}

func (p *ICYPlayer) setPlaying(playing bool) {
	if p.playing == playing {
		return
	}
	p.playing = playing
	if playing {
		p.posStart = time.Now()
	} else {
		p.posAccum += time.Since(p.posStart).Milliseconds()
	}
	p.dispatch(func(l Listener) { l.OnIsPlayingChanged(playing) })
}

func (p *ICYPlayer) cancelStream() {
	if p.stream != nil {
		p.stream.cancel()
		p.stream = nil
	}
}

func (p *ICYPlayer) startStream() {
	cur := p.current()
	if cur == nil {
		return
	}

	p.streamGen++
	gen := p.streamGen
	ctx, cancel := context.WithCancel(context.Background())
	p.stream = &streamHandle{cancel: cancel, gen: gen}
	p.setState(StateBuffering)

	item := *cur
	opts := pipelineOptions{
		decoder:       p.opts.Decoder,
		logLevel:      p.opts.LogLevel,
		fallbackKbps:  p.opts.FallbackKbps,
		bufferSeconds: p.opts.BufferSeconds(),
	}

	ev := pipelineEvents{
		onReady: func() {
			p.post(func() {
				if !p.streamCurrent(gen) {
					return
				}
				p.setState(StateReady)
				if p.playWhenReady {
					p.setPlaying(true)
				}
			})
		},
		onIcy: func(title string) {
			p.post(func() {
				if !p.streamCurrent(gen) {
					return
				}
				p.dispatch(func(l Listener) { l.OnIcyMetadata(title) })
			})
		},
		onError: func(err *Error) {
			p.post(func() {
				if !p.streamCurrent(gen) {
					return
				}
				p.cancelStream()
				p.setPlaying(false)
				p.setState(StateIdle)
				p.dispatch(func(l Listener) { l.OnPlayerError(err) })
			})
		},
		onEOF: func() {
			p.post(func() {
				if !p.streamCurrent(gen) {
					return
				}
				p.cancelStream()
				if p.index+1 < len(p.queue) {
					p.index++
					p.posAccum = 0
					item := p.queue[p.index]
					p.dispatch(func(l Listener) { l.OnItemTransition(&item, TransitionAuto) })
					p.startStream()
					return
				}
				p.setPlaying(false)
				p.setState(StateEnded)
			})
		},
	}

	go p.pipeline(ctx, item, opts, ev)
}

func (p *ICYPlayer) streamCurrent(gen int) bool {
	return p.stream != nil && p.stream.gen == gen
}
