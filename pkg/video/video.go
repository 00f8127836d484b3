// Package video decodes IVF-framed VP8 clips one frame at a time.
package video

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"time"

	"golang.org/x/image/vp8"
)

// ErrInvalidVideo is returned for files that are not IVF/VP8.
var ErrInvalidVideo = errors.New("invalid video")

const (
	ivfHeaderSize      = 32
	ivfFrameHeaderSize = 12
	defaultFPS         = 30
	maxFrameSize       = 16 << 20
)

// Player reads VP8 frames from an IVF container.
type Player struct {
	r      io.Reader
	closer io.Closer
	dec    *vp8.Decoder

	width, height int
	frameCount    int
	frameDuration time.Duration
}

// Open opens an IVF file.
func Open(path string) (*Player, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video: %w", err)
	}
	p, err := NewPlayer(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.closer = f
	return p, nil
}

// NewPlayer reads the IVF header from r.
func NewPlayer(r io.Reader) (*Player, error) {
	header := make([]byte, ivfHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("%w: short header: %v", ErrInvalidVideo, err)
	}
	if string(header[0:4]) != "DKIF" {
		return nil, fmt.Errorf("%w: missing DKIF signature", ErrInvalidVideo)
	}
	if fourcc := string(header[8:12]); fourcc != "VP80" {
		return nil, fmt.Errorf("%w: unsupported codec %q", ErrInvalidVideo, fourcc)
	}

	rate := binary.LittleEndian.Uint32(header[16:20])
	scale := binary.LittleEndian.Uint32(header[20:24])
	if scale == 0 {
		scale = 1
	}
	fps := float64(rate) / float64(scale)
	if fps <= 0 {
		fps = defaultFPS
	}

	return &Player{
		r:             r,
		dec:           vp8.NewDecoder(),
		width:         int(binary.LittleEndian.Uint16(header[12:14])),
		height:        int(binary.LittleEndian.Uint16(header[14:16])),
		frameCount:    int(binary.LittleEndian.Uint32(header[24:28])),
		frameDuration: time.Duration(float64(time.Second) / fps),
	}, nil
}

// Size returns the frame size declared in the header.
func (p *Player) Size() (int, int) { return p.width, p.height }

// FrameCount returns the frame count declared in the header.
func (p *Player) FrameCount() int { return p.frameCount }

// FrameDuration returns the display time of one frame.
func (p *Player) FrameDuration() time.Duration { return p.frameDuration }

// NextFrame decodes the next frame. It returns io.EOF after the last frame.
func (p *Player) NextFrame() (image.Image, error) {
	fh := make([]byte, ivfFrameHeaderSize)
	if _, err := io.ReadFull(p.r, fh); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, err
	}

	size := binary.LittleEndian.Uint32(fh[:4])
	if size == 0 || size > maxFrameSize {
		return nil, fmt.Errorf("%w: frame size %d", ErrInvalidVideo, size)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(p.r, data); err != nil {
		return nil, fmt.Errorf("%w: truncated frame: %v", ErrInvalidVideo, err)
	}

	p.dec.Init(bytes.NewReader(data), int(size))
	if _, err := p.dec.DecodeFrameHeader(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVideo, err)
	}
	img, err := p.dec.DecodeFrame()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVideo, err)
	}
	return img, nil
}

// Close releases the underlying file.
func (p *Player) Close() error {
	if p.closer == nil {
		return nil
	}
	err := p.closer.Close()
	p.closer = nil
	return err
}
