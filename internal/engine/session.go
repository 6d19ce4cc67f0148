package engine

import "github.com/MasterOfPuppets/wradio/internal/player"

// Session is the control surface handed to the playback client. It is a
// thin veneer over the shared player: the engine creates exactly one per
// process and every attached client drives the same instance.
type Session struct {
	player player.Player
}

func (s *Session) SetQueue(items []player.MediaItem, startIndex int, positionMs int64) {
	s.player.SetQueue(items, startIndex, positionMs)
}

func (s *Session) Prepare() { s.player.Prepare() }
func (s *Session) Play()    { s.player.Play() }
func (s *Session) Pause()   { s.player.Pause() }
func (s *Session) Stop()    { s.player.Stop() }

func (s *Session) Position() int64 { return s.player.Position() }

func (s *Session) AddListener(l player.Listener) (remove func()) {
	return s.player.AddListener(l)
}
