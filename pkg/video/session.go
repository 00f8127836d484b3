package video

import (
	"errors"
	"image"
	"io"
	"time"
)

// Source yields decoded frames at a fixed rate.
type Source interface {
	NextFrame() (image.Image, error)
	FrameDuration() time.Duration
	Close() error
}

// Session plays one clip inside a frame-driven loop. The driver calls Step
// every update; Step decodes a frame only when the previous one has been on
// screen for a full frame duration.
type Session struct {
	Name       string
	X, Y, W, H int

	src     Source
	next    time.Time
	started bool
	done    bool
	err     error
}

// NewSession starts a session for src placed at the given rect.
func NewSession(name string, src Source, x, y, w, h int) *Session {
	return &Session{Name: name, X: x, Y: y, W: w, H: h, src: src}
}

// Key is the transient resource name of the current frame.
func (s *Session) Key() string { return "video_" + s.Name }

// Step returns the next frame when one is due at now, or nil when the
// current frame should stay on screen. After the clip ends or fails, Done
// reports true and Step returns nil.
func (s *Session) Step(now time.Time) image.Image {
	if s.done {
		return nil
	}
	if s.started && now.Before(s.next) {
		return nil
	}

	img, err := s.src.NextFrame()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			s.err = err
		}
		s.finish()
		return nil
	}

	if !s.started {
		s.started = true
		s.next = now
	}
	s.next = s.next.Add(s.src.FrameDuration())
	// Resync when playback fell more than a frame behind.
	if s.next.Before(now) {
		s.next = now.Add(s.src.FrameDuration())
	}
	return img
}

// Cancel stops playback early.
func (s *Session) Cancel() {
	s.finish()
}

func (s *Session) finish() {
	if s.done {
		return
	}
	s.done = true
	_ = s.src.Close()
}

// Done reports whether playback has ended.
func (s *Session) Done() bool { return s.done }

// Err returns the decode error that ended playback, if any.
func (s *Session) Err() error { return s.err }
