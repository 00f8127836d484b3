package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sinshu/go-meltysynth/meltysynth"
)

// ErrNoSoundFont is returned when MIDI music is requested without a SoundFont.
var ErrNoSoundFont = errors.New("SoundFont file is required for MIDI playback")

// LoadSoundFont reads and parses a SoundFont (.sf2) file.
func LoadSoundFont(path string) (*meltysynth.SoundFont, error) {
	if path == "" {
		return nil, ErrNoSoundFont
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read SoundFont file: %w", err)
	}
	sf, err := meltysynth.NewSoundFont(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SoundFont: %w", err)
	}
	return sf, nil
}

// MIDIStream implements io.Reader for Ebitengine/audio by rendering samples
// from a meltysynth sequencer as 16-bit little-endian stereo.
//
// A stream with a positive limit returns io.EOF once that many samples have
// been rendered; a zero limit renders forever.
type MIDIStream struct {
	sequencer   *meltysynth.MidiFileSequencer
	sampleCount int64
	limit       int64
	stopped     bool
	mu          sync.Mutex
}

// NewMIDIStream parses midiData and starts a looping sequencer on a fresh
// synthesizer. loops < 0 plays forever; otherwise the stream ends after
// max(loops, 1) passes through the song.
func NewMIDIStream(sf *meltysynth.SoundFont, midiData []byte, loops int) (*MIDIStream, error) {
	if sf == nil {
		return nil, ErrNoSoundFont
	}
	midi, err := meltysynth.NewMidiFile(bytes.NewReader(midiData))
	if err != nil {
		return nil, fmt.Errorf("invalid MIDI file: %w", err)
	}
	synth, err := meltysynth.NewSynthesizer(sf, meltysynth.NewSynthesizerSettings(SampleRate))
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesizer: %w", err)
	}

	seq := meltysynth.NewMidiFileSequencer(synth)
	seq.Play(midi, true)

	s := &MIDIStream{sequencer: seq}
	if loops >= 0 {
		perPass := int64(midi.GetLength().Seconds() * SampleRate)
		s.limit = perPass * int64(max(loops, 1))
	}
	return s, nil
}

// Read renders the next block of samples.
func (s *MIDIStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return 0, io.EOF
	}

	samples := int64(len(p) / 4)
	if s.limit > 0 {
		remaining := s.limit - s.sampleCount
		if remaining <= 0 {
			return 0, io.EOF
		}
		samples = min(samples, remaining)
	}
	if samples == 0 {
		return 0, nil
	}

	if s.sequencer == nil {
		clear(p[:samples*4])
		s.sampleCount += samples
		return int(samples * 4), nil
	}

	left := make([]float32, samples)
	right := make([]float32, samples)
	s.sequencer.Render(left, right)
	s.sampleCount += samples

	for i := range samples {
		l := int16(clamp(left[i], -1, 1) * 32767)
		r := int16(clamp(right[i], -1, 1) * 32767)
		binary.LittleEndian.PutUint16(p[i*4:], uint16(l))
		binary.LittleEndian.PutUint16(p[i*4+2:], uint16(r))
	}
	return int(samples * 4), nil
}

// Stop makes subsequent reads return io.EOF.
func (s *MIDIStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

// SampleCount returns the number of samples rendered so far.
func (s *MIDIStream) SampleCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sampleCount
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
