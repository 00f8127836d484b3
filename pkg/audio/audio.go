// Package audio plays sound effects and background music through a single
// shared Ebitengine audio context.
package audio

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/sinshu/go-meltysynth/meltysynth"
)

// SampleRate is the output sample rate of the mixer.
const SampleRate = 44100

// MaxVolume is the upper bound of the script-visible volume range.
const MaxVolume = 128

var (
	sharedCtx     *audio.Context
	sharedCtxOnce sync.Once
)

// SharedContext returns the process-wide audio context. Ebitengine allows
// only one context per process.
func SharedContext() *audio.Context {
	sharedCtxOnce.Do(func() {
		sharedCtx = audio.CurrentContext()
		if sharedCtx == nil {
			sharedCtx = audio.NewContext(SampleRate)
		}
	})
	return sharedCtx
}

// Option configures a Mixer.
type Option func(*Mixer)

// WithLogger sets the mixer's logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Mixer) {
		m.log = log
	}
}

// WithSoundFont enables MIDI music.
func WithSoundFont(sf *meltysynth.SoundFont) Option {
	return func(m *Mixer) {
		m.soundFont = sf
	}
}

// WithMuted starts the mixer muted (headless mode).
func WithMuted(muted bool) Option {
	return func(m *Mixer) {
		m.muted = muted
	}
}

// Mixer owns every active player. Sound effects overlap freely; at most one
// music track plays at a time.
type Mixer struct {
	ctx       *audio.Context
	log       *slog.Logger
	soundFont *meltysynth.SoundFont

	sounds      []sound
	music       *audio.Player
	musicName   string
	musicStream *MIDIStream

	volume int
	muted  bool

	mu sync.Mutex
}

// sound is a playing sound effect and the name it was started under.
type sound struct {
	name   string
	player *audio.Player
}

// NewMixer creates a mixer on ctx. A nil ctx uses SharedContext.
func NewMixer(ctx *audio.Context, opts ...Option) *Mixer {
	if ctx == nil {
		ctx = SharedContext()
	}
	m := &Mixer{
		ctx:    ctx,
		log:    slog.Default(),
		volume: MaxVolume,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// gain converts the mixer volume to an Ebitengine player volume.
// Must be called with m.mu held.
func (m *Mixer) gain() float64 {
	if m.muted {
		return 0
	}
	return float64(m.volume) / MaxVolume
}

// PlaySound starts a sound effect from decoded PCM.
func (m *Mixer) PlaySound(name string, pcm []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reapSounds()

	p := m.ctx.NewPlayerFromBytes(pcm)
	p.SetVolume(m.gain())
	p.Play()
	m.sounds = append(m.sounds, sound{name: name, player: p})
	m.log.Debug("sound started", "name", name, "active", len(m.sounds))
}

// StopSound closes every sound effect started under name and returns how
// many were stopped.
func (m *Mixer) StopSound(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := m.sounds[:0]
	stopped := 0
	for _, s := range m.sounds {
		if s.name == name {
			s.player.Close()
			stopped++
			continue
		}
		active = append(active, s)
	}
	clear(m.sounds[len(active):])
	m.sounds = active
	if stopped > 0 {
		m.log.Debug("sound stopped", "name", name, "count", stopped)
	}
	return stopped
}

// SoundPlaying reports whether a sound effect started under name is still
// playing.
func (m *Mixer) SoundPlaying(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reapSounds()
	for _, s := range m.sounds {
		if s.name == name {
			return true
		}
	}
	return false
}

// PlayMusic replaces the current music with track. loops < 0 repeats
// forever, loops <= 1 plays once, otherwise the track repeats loops times.
func (m *Mixer) PlayMusic(name string, track Track, loops int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopMusic()

	src, err := track.open(m.soundFont, loops)
	if err != nil {
		return fmt.Errorf("music %s: %w", name, err)
	}
	p, err := m.ctx.NewPlayer(src)
	if err != nil {
		return fmt.Errorf("failed to create audio player: %w", err)
	}
	if ms, ok := src.(*MIDIStream); ok {
		m.musicStream = ms
	}
	p.SetVolume(m.gain())
	p.Play()
	m.music = p
	m.musicName = name
	m.log.Debug("music started", "name", name, "kind", track.Kind, "loops", loops)
	return nil
}

// StopMusic halts the current music. It is a no-op when nothing plays.
func (m *Mixer) StopMusic() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopMusic()
}

// stopMusic must be called with m.mu held.
func (m *Mixer) stopMusic() {
	if m.musicStream != nil {
		m.musicStream.Stop()
		m.musicStream = nil
	}
	if m.music != nil {
		m.music.Close()
		m.music = nil
	}
	m.musicName = ""
}

// MusicName returns the name of the playing music, or "".
func (m *Mixer) MusicName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.musicName
}

// SetVolume clamps n to [0, MaxVolume], applies it to every player and
// returns the applied value.
func (m *Mixer) SetVolume(n int) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.volume = min(max(n, 0), MaxVolume)
	m.applyGain()
	return m.volume
}

// Volume returns the current volume.
func (m *Mixer) Volume() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

// SetMuted silences all output without changing the volume.
func (m *Mixer) SetMuted(muted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muted = muted
	m.applyGain()
}

// IsMuted reports whether output is muted.
func (m *Mixer) IsMuted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted
}

// applyGain must be called with m.mu held.
func (m *Mixer) applyGain() {
	g := m.gain()
	for _, s := range m.sounds {
		s.player.SetVolume(g)
	}
	if m.music != nil {
		m.music.SetVolume(g)
	}
}

// ActiveSounds returns the number of sound effects still playing.
func (m *Mixer) ActiveSounds() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reapSounds()
	return len(m.sounds)
}

// reapSounds closes finished sound players. Must be called with m.mu held.
func (m *Mixer) reapSounds() {
	active := m.sounds[:0]
	for _, s := range m.sounds {
		if s.player.IsPlaying() {
			active = append(active, s)
		} else {
			s.player.Close()
		}
	}
	clear(m.sounds[len(active):])
	m.sounds = active
}

// Update is called once per frame to release finished players.
func (m *Mixer) Update() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reapSounds()
	if m.music != nil && !m.music.IsPlaying() {
		m.log.Debug("music finished", "name", m.musicName)
		m.stopMusic()
	}
}

// Close stops every player.
func (m *Mixer) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sounds {
		s.player.Close()
	}
	m.sounds = nil
	m.stopMusic()
}
