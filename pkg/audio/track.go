package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/audio/mp3"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"
	"github.com/sinshu/go-meltysynth/meltysynth"
)

// ErrInvalidFormat is returned when audio data cannot be decoded.
var ErrInvalidFormat = errors.New("invalid audio format")

// MusicKind identifies the encoding of a music track.
type MusicKind int

const (
	MusicMP3 MusicKind = iota
	MusicMIDI
	MusicWAV
)

func (k MusicKind) String() string {
	switch k {
	case MusicMP3:
		return "mp3"
	case MusicMIDI:
		return "midi"
	case MusicWAV:
		return "wav"
	default:
		return fmt.Sprintf("MusicKind(%d)", int(k))
	}
}

// KindForExt maps a file extension to a music kind.
func KindForExt(ext string) (MusicKind, bool) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "mp3":
		return MusicMP3, true
	case "mid", "midi":
		return MusicMIDI, true
	case "wav":
		return MusicWAV, true
	}
	return 0, false
}

// Track is an encoded music source kept in the resource cache. Music is
// decoded when it starts playing, so a cached track costs only its file size.
type Track struct {
	Kind MusicKind
	Data []byte
}

// DecodeSound decodes WAV data into 16-bit stereo PCM at SampleRate, ready
// for Context.NewPlayerFromBytes.
func DecodeSound(data []byte) ([]byte, error) {
	stream, err := wav.DecodeWithSampleRate(SampleRate, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	pcm, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return pcm, nil
}

// Validate checks that the track can be decoded, without keeping the result.
func (t Track) Validate() error {
	switch t.Kind {
	case MusicMP3:
		if _, err := mp3.DecodeWithSampleRate(SampleRate, bytes.NewReader(t.Data)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
	case MusicWAV:
		if _, err := wav.DecodeWithSampleRate(SampleRate, bytes.NewReader(t.Data)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
	case MusicMIDI:
		if _, err := meltysynth.NewMidiFile(bytes.NewReader(t.Data)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
	default:
		return fmt.Errorf("%w: unknown kind %v", ErrInvalidFormat, t.Kind)
	}
	return nil
}

// lengthStream is a decoded stream with a known byte length.
type lengthStream interface {
	io.ReadSeeker
	Length() int64
}

// open builds the playback stream for the track. loops < 0 repeats forever,
// loops <= 1 plays once, otherwise the track repeats loops times.
func (t Track) open(sf *meltysynth.SoundFont, loops int) (io.Reader, error) {
	var s lengthStream
	var err error
	switch t.Kind {
	case MusicMIDI:
		return NewMIDIStream(sf, t.Data, loops)
	case MusicMP3:
		s, err = mp3.DecodeWithSampleRate(SampleRate, bytes.NewReader(t.Data))
	case MusicWAV:
		s, err = wav.DecodeWithSampleRate(SampleRate, bytes.NewReader(t.Data))
	default:
		return nil, fmt.Errorf("%w: unknown kind %v", ErrInvalidFormat, t.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	switch {
	case loops < 0:
		return audio.NewInfiniteLoop(s, s.Length()), nil
	case loops <= 1:
		return s, nil
	default:
		return &repeatStream{src: s, remaining: loops}, nil
	}
}

// repeatStream plays src a fixed number of times.
type repeatStream struct {
	src       io.ReadSeeker
	remaining int
}

func (r *repeatStream) Read(p []byte) (int, error) {
	for {
		n, err := r.src.Read(p)
		if err != io.EOF {
			return n, err
		}
		if n > 0 {
			return n, nil
		}
		r.remaining--
		if r.remaining <= 0 {
			return 0, io.EOF
		}
		if _, err := r.src.Seek(0, io.SeekStart); err != nil {
			return 0, err
		}
	}
}
