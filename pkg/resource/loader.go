package resource

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/image/bmp"

	"github.com/zurustar/novella/pkg/audio"
	"github.com/zurustar/novella/pkg/fileutil"
)

// Defaults for NewLoader.
const (
	DefaultInterval  = 16 * time.Millisecond
	DefaultQueueSize = 256
)

// Uploader makes decoded images resident on the render backend.
type Uploader interface {
	LoadImage(name string, img image.Image) error
}

// Stats counts successful decodes per kind.
type Stats struct {
	Images   int64
	Sounds   int64
	Music    int64
	Failures int64
}

// Loader decodes requested assets from the project root on a background
// goroutine. Requests travel over a bounded channel; the goroutine drains one
// per tick and stores results in the cache and backend under the engine lock.
type Loader struct {
	root     string
	cache    *Cache
	lock     sync.Locker
	backend  Uploader
	log      *slog.Logger
	interval time.Duration

	requests chan string
	qmu      sync.Mutex
	queued   map[string]bool

	images, sounds, music, failures atomic.Int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the loader's logger.
func WithLogger(log *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.log = log
	}
}

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) LoaderOption {
	return func(l *Loader) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithQueueSize sets the request channel capacity.
func WithQueueSize(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.requests = make(chan string, n)
		}
	}
}

// NewLoader creates a loader reading assets below root. lock is the engine
// lock that guards cache and the backend.
func NewLoader(root string, cache *Cache, lock sync.Locker, backend Uploader, opts ...LoaderOption) *Loader {
	l := &Loader{
		root:     root,
		cache:    cache,
		lock:     lock,
		backend:  backend,
		log:      slog.Default(),
		interval: DefaultInterval,
		requests: make(chan string, DefaultQueueSize),
		queued:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Request enqueues name for loading unless it is already cached or queued.
// The caller must hold the engine lock. It never blocks: when the queue is
// full the request is dropped and Request returns false.
func (l *Loader) Request(name string) bool {
	if name == "" || l.cache.Has(name) {
		return false
	}

	l.qmu.Lock()
	defer l.qmu.Unlock()
	if l.queued[name] {
		return false
	}
	select {
	case l.requests <- name:
		l.queued[name] = true
		return true
	default:
		l.log.Warn("load queue full, dropping request", "name", name)
		return false
	}
}

// Pending returns the number of queued requests.
func (l *Loader) Pending() int {
	l.qmu.Lock()
	defer l.qmu.Unlock()
	return len(l.queued)
}

// Stats returns decode counters.
func (l *Loader) Stats() Stats {
	return Stats{
		Images:   l.images.Load(),
		Sounds:   l.sounds.Load(),
		Music:    l.music.Load(),
		Failures: l.failures.Load(),
	}
}

// Start launches the background goroutine.
func (l *Loader) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	l.wg.Add(1)
	go l.run(ctx)
}

// Stop signals the goroutine and waits for it to exit. Safe to call more
// than once and before Start.
func (l *Loader) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	l.wg.Wait()
}

func (l *Loader) run(ctx context.Context) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			select {
			case name := <-l.requests:
				l.load(name)
			default:
			}
		}
	}
}

// load decodes every media kind for name. Each kind is independent: a
// missing or broken file for one kind is logged and skipped.
func (l *Loader) load(name string) {
	defer func() {
		l.qmu.Lock()
		delete(l.queued, name)
		l.qmu.Unlock()
	}()

	img, imgErr := l.decodeImage(name)
	pcm, sndErr := l.decodeSound(name)
	track, musErr := l.decodeMusic(name)

	for kind, err := range map[string]error{"image": imgErr, "sound": sndErr, "music": musErr} {
		switch {
		case err == nil:
		case errors.Is(err, fileutil.ErrNotFound):
			l.log.Debug("asset not found", "name", name, "kind", kind)
		default:
			l.failures.Add(1)
			l.log.Warn("asset decode failed", "name", name, "kind", kind, "error", err)
		}
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	if imgErr == nil && l.cache.PutImage(name, img) {
		l.images.Add(1)
		if l.backend != nil {
			if err := l.backend.LoadImage(name, img); err != nil {
				l.log.Warn("image upload failed", "name", name, "error", err)
			}
		}
	}
	if sndErr == nil && l.cache.PutSound(name, pcm) {
		l.sounds.Add(1)
	}
	if musErr == nil && l.cache.PutMusic(name, track) {
		l.music.Add(1)
	}
}

func (l *Loader) decodeImage(name string) (image.Image, error) {
	path, ext, err := fileutil.ResolveAsset(l.root, name, ".png", ".bmp")
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var img image.Image
	if ext == ".png" {
		img, err = png.Decode(f)
	} else {
		img, err = bmp.Decode(f)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

func (l *Loader) decodeSound(name string) ([]byte, error) {
	path, _, err := fileutil.ResolveAsset(l.root, name, ".wav")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pcm, err := audio.DecodeSound(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pcm, nil
}

func (l *Loader) decodeMusic(name string) (audio.Track, error) {
	path, ext, err := fileutil.ResolveAsset(l.root, name, ".mp3", ".mid")
	if err != nil {
		return audio.Track{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return audio.Track{}, err
	}
	kind, _ := audio.KindForExt(ext)
	t := audio.Track{Kind: kind, Data: data}
	if err := t.Validate(); err != nil {
		return audio.Track{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
