package script

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce エディタの連続書き込みをまとめる待ち時間
const DefaultDebounce = 200 * time.Millisecond

// Watcher スクリプトファイルの変更を監視し、再読み込みしたProgramを通知する
type Watcher struct {
	path     string
	opts     []Option
	onReload func(*Program)
	debounce time.Duration
	log      *slog.Logger

	fsw  *fsnotify.Watcher
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewWatcher pathを監視するWatcherを作成して監視を開始する
// 編集時のrename/createに追従するためディレクトリ単位で監視する
func NewWatcher(path string, onReload func(*Program), log *slog.Logger, opts ...Option) (*Watcher, error) {
	if log == nil {
		log = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}

	w := &Watcher{
		path:     filepath.Clean(path),
		opts:     opts,
		onReload: onReload,
		debounce: DefaultDebounce,
		log:      log,
		fsw:      fsw,
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("script watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	p, err := Load(w.path, w.opts...)
	if err != nil {
		// 保存途中のファイルは次のイベントで再試行される
		w.log.Warn("script reload failed", "path", w.path, "error", err)
		return
	}
	w.log.Info("script reloaded", "path", w.path, "lines", p.Len())
	if w.onReload != nil {
		w.onReload(p)
	}
}

// Close 監視を停止する（複数回呼んでも安全）
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		w.wg.Wait()
		err = w.fsw.Close()
	})
	return err
}
