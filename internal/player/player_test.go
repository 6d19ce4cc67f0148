package player

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakePipeline stands in for the network/decoder pipeline: it reports ready
// immediately and then holds the stream open until cancelled.
type fakePipeline struct {
	mu     sync.Mutex
	starts []string
}

func (f *fakePipeline) run(ctx context.Context, item MediaItem, _ pipelineOptions, ev pipelineEvents) {
	f.mu.Lock()
	f.starts = append(f.starts, item.URI)
	f.mu.Unlock()
	ev.onReady()
	<-ctx.Done()
}

func (f *fakePipeline) started() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.starts...)
}

func newFakePlayer(t *testing.T) (*ICYPlayer, *fakePipeline) {
	t.Helper()
	p := NewICY(Options{})
	f := &fakePipeline{}
	p.call(func() { p.pipeline = f.run })
	t.Cleanup(p.Release)
	return p, f
}

func waitPlaying(t *testing.T, p *ICYPlayer, want bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p.IsPlaying() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("IsPlaying never became %v", want)
}

func item(uri string) MediaItem {
	return MediaItem{URI: uri, Metadata: ItemMetadata{Title: uri}}
}

func TestQueueSwapKeepsLiveStream(t *testing.T) {
	p, f := newFakePlayer(t)

	p.SetQueue([]MediaItem{item("http://radio.example/b")}, 0, 0)
	p.Prepare()
	p.Play()
	waitPlaying(t, p, true)

	// The playing station re-appears inside a larger queue at a new index;
	// audio must carry straight through the swap.
	grown := []MediaItem{
		item("http://radio.example/a"),
		item("http://radio.example/b"),
		item("http://radio.example/c"),
	}
	p.SetQueue(grown, 1, p.Position())

	if !p.IsPlaying() {
		t.Fatal("queue swap around the playing item interrupted playback")
	}
	if got := p.CurrentIndex(); got != 1 {
		t.Errorf("index = %d, want 1", got)
	}
	if starts := f.started(); len(starts) != 1 {
		t.Errorf("stream restarted across the swap: starts = %v", starts)
	}
}

func TestQueueSwapToNewItemRestartsStream(t *testing.T) {
	p, f := newFakePlayer(t)

	p.SetQueue([]MediaItem{item("http://radio.example/a")}, 0, 0)
	p.Prepare()
	p.Play()
	waitPlaying(t, p, true)

	p.SetQueue([]MediaItem{item("http://radio.example/z")}, 0, 0)
	waitPlaying(t, p, true)

	starts := f.started()
	if len(starts) != 2 || starts[1] != "http://radio.example/z" {
		t.Errorf("starts = %v, want old stream replaced by /z", starts)
	}
}

func TestQueueSwapWhilePausedStaysIdle(t *testing.T) {
	p, f := newFakePlayer(t)

	p.SetQueue([]MediaItem{item("http://radio.example/a")}, 0, 0)
	p.Prepare()
	p.Play()
	waitPlaying(t, p, true)
	p.Pause()
	waitPlaying(t, p, false)

	p.SetQueue([]MediaItem{item("http://radio.example/z")}, 0, 0)

	if p.IsPlaying() {
		t.Error("paused player started playing on queue swap")
	}
	if starts := f.started(); len(starts) != 1 {
		t.Errorf("paused swap opened a stream: starts = %v", starts)
	}
}
