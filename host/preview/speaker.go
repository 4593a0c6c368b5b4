//go:build !headless

package preview

import (
	"io"

	"github.com/ebitengine/oto/v3"
)

// Speaker plays a mono float32 stream on the default audio device.
type Speaker struct {
	ctx    *oto.Context
	player *oto.Player
}

// OpenSpeaker initializes the audio device. Only one Speaker may exist per process.
func OpenSpeaker(sampleRate int) (*Speaker, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	return &Speaker{ctx: ctx}, nil
}

// Play starts streaming from r, replacing any current stream.
func (s *Speaker) Play(r io.Reader) {
	s.Stop()
	s.player = s.ctx.NewPlayer(r)
	s.player.Play()
}

// Stop halts the current stream.
func (s *Speaker) Stop() {
	if s.player != nil {
		s.player.Close()
		s.player = nil
	}
}

// IsPlaying reports whether a stream is playing.
func (s *Speaker) IsPlaying() bool {
	return s.player != nil && s.player.IsPlaying()
}
