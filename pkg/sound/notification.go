package sound

import (
	"fmt"
	"os"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
)

// SoundNotifier plays a short audible cue when an alert fires. It is created
// only when the user configured a sound file; everything else in the program
// treats a nil notifier as "no sound".
type SoundNotifier struct {
	path string
}

// NewSoundNotifier initializes audio output for the given WAV file.
func NewSoundNotifier(path string) (*SoundNotifier, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("alert sound file not usable: %w", err)
	}

	if err := speaker.Init(44100, 4096); err != nil {
		return nil, fmt.Errorf("failed to initialize audio: %w", err)
	}

	return &SoundNotifier{path: path}, nil
}

// PlayAlertSound plays the configured cue and returns without waiting for
// playback to finish.
func (s *SoundNotifier) PlayAlertSound() error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open sound file: %w", err)
	}

	streamer, _, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to decode WAV: %w", err)
	}

	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		streamer.Close()
		f.Close()
	})))
	return nil
}
