//go:build headless

package preview

import (
	"errors"
	"io"
)

// ErrNoAudio is returned by OpenSpeaker in headless builds
var ErrNoAudio = errors.New("built without audio output (headless)")

// Speaker is unavailable in headless builds
type Speaker struct{}

func OpenSpeaker(sampleRate int) (*Speaker, error) {
	return nil, ErrNoAudio
}

func (s *Speaker) Play(r io.Reader) {}

func (s *Speaker) Stop() {}

func (s *Speaker) IsPlaying() bool { return false }
