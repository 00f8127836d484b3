// Package engine はスクリプトインタプリタ・描画・リソース読み込み・
// セーブを1つのロックで束ねるビジュアルノベルエンジン
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/zurustar/novella/pkg/audio"
	"github.com/zurustar/novella/pkg/fileutil"
	"github.com/zurustar/novella/pkg/logger"
	"github.com/zurustar/novella/pkg/module"
	"github.com/zurustar/novella/pkg/persist"
	"github.com/zurustar/novella/pkg/render"
	"github.com/zurustar/novella/pkg/resource"
	"github.com/zurustar/novella/pkg/script"
	"github.com/zurustar/novella/pkg/video"
)

// DefaultSaveDatabase は組み込みセーブストアのファイル名
const DefaultSaveDatabase = "savegame.db"

// Config はエンジンの設定
type Config struct {
	Root           string   // アセットを探すディレクトリ
	Backend        string   // opengl | vulkan | headless
	Width, Height  int      // 論理キャンバス
	FramesInFlight int      // vulkan バックエンドのフレーム数
	Modules        []string // 読み込むカスタムモジュール（順序どおり）
	FontPath       string   // 空なら組み込みフォント
	FontSize       float64
	Encoding       string // スクリプトの文字コード
	Watch          bool   // スクリプトの変更を監視して再読み込みする
	Volume         *int   // 開始音量。nil なら最大
	Timeout        time.Duration
}

func (c Config) withDefaults() Config {
	if c.Width <= 0 {
		c.Width = 1920
	}
	if c.Height <= 0 {
		c.Height = 1080
	}
	if c.FontSize <= 0 {
		c.FontSize = 32
	}
	if c.Backend == "" {
		c.Backend = "opengl"
	}
	if c.Volume == nil {
		v := audio.MaxVolume
		c.Volume = &v
	}
	return c
}

// EngineOption はエンジンの設定
type EngineOption func(*Engine)

// WithEngineLogger ロガーを設定
func WithEngineLogger(log *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = log
	}
}

// WithBackend 生成済みのバックエンドを使う（Config.Backend より優先）
func WithBackend(b render.Backend) EngineOption {
	return func(e *Engine) {
		e.backend = b
	}
}

// WithMixer 音声ミキサーを設定（nil なら音声なし）
func WithMixer(m *audio.Mixer) EngineOption {
	return func(e *Engine) {
		e.mixer = m
	}
}

// WithStore セーブストアを設定（モジュール・組み込みストアより優先）
func WithStore(s persist.Store) EngineOption {
	return func(e *Engine) {
		e.store = s
	}
}

// WithVideoOpener 動画ファイルの開き方を差し替える
func WithVideoOpener(open func(path string) (video.Source, error)) EngineOption {
	return func(e *Engine) {
		e.openVideo = open
	}
}

// WithLoaderInterval リソースローダーのポーリング間隔を設定
func WithLoaderInterval(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.loaderInterval = d
	}
}

// Engine はインタプリタと周辺機能を所有する
// mu はインタプリタ状態・キャッシュ・バックエンドの常駐リソースをまとめて保護する
type Engine struct {
	mu sync.Mutex

	cfg Config
	log *slog.Logger

	backend render.Backend
	text    *render.TextRasterizer
	cache   *resource.Cache
	loader  *resource.Loader
	mixer   *audio.Mixer

	interp  *Interpreter
	store   persist.Store
	saves   *persist.Adapter
	modules *module.Set
	watcher *script.Watcher

	video     *videoPlayback
	openVideo func(path string) (video.Source, error)

	loaderInterval time.Duration
	quit           bool
	fatal          error
	initialized    bool
	shutdownOnce   sync.Once
}

// videoPlayback は再生中の動画と、再生前のゲーム画面の表示リスト
// sound は同時再生している音声の名前（なければ空）
type videoPlayback struct {
	session *video.Session
	saved   render.DisplayList
	sound   string
}

// New エンジンを作成（Init を呼ぶまで何も確保しない）
func New(cfg Config, opts ...EngineOption) *Engine {
	e := &Engine{
		cfg: cfg.withDefaults(),
		log: logger.GetLogger(),
		openVideo: func(path string) (video.Source, error) {
			return video.Open(path)
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Init バックエンド・スクリプト・ローダー・モジュール・セーブストアを初期化する
// 失敗時はそれまでに確保したものを解放してエラーを返す
func (e *Engine) Init(scriptPath, savePath string) (err error) {
	defer func() {
		if err != nil {
			e.Shutdown()
		}
	}()

	if e.backend == nil {
		e.backend, err = render.New(e.cfg.Backend, render.WithLogger(e.log))
		if err != nil {
			return err
		}
	}
	if err := e.backend.Init(render.Config{
		Width:          e.cfg.Width,
		Height:         e.cfg.Height,
		FramesInFlight: e.cfg.FramesInFlight,
	}); err != nil {
		return &render.InitError{Backend: e.backend.Name(), Err: err}
	}

	e.text, err = render.NewTextRasterizer(e.cfg.FontPath, e.cfg.FontSize)
	if err != nil {
		e.log.Warn("failed to load font, using basic font", "path", e.cfg.FontPath, "error", err)
		e.text = render.NewBasicTextRasterizer()
	}

	prog, err := script.Load(scriptPath, script.WithEncoding(e.cfg.Encoding))
	if err != nil {
		return fmt.Errorf("failed to load script: %w", err)
	}

	loaderOpts := []resource.LoaderOption{resource.WithLogger(e.log)}
	if e.loaderInterval > 0 {
		loaderOpts = append(loaderOpts, resource.WithInterval(e.loaderInterval))
	}
	e.cache = resource.NewCache()
	e.loader = resource.NewLoader(e.cfg.Root, e.cache, &e.mu, e.backend, loaderOpts...)

	e.modules = module.LoadAll(e.cfg.Root, e.cfg.Modules,
		module.WithLogger(e.log), module.WithSavePath(savePath))
	if e.store == nil {
		e.store, err = e.openStore(savePath)
		if err != nil {
			return err
		}
	}

	e.mu.Lock()
	e.interp = NewInterpreter(prog, e,
		WithLogger(e.log), WithCanvas(e.cfg.Width, e.cfg.Height))
	e.saves = persist.NewAdapter(e.store, (*lockedState)(e), e.log)
	e.interp.EnterScreen(ScreenMenu)
	if e.mixer != nil {
		e.mixer.SetVolume(*e.cfg.Volume)
	}
	e.initialized = true
	e.mu.Unlock()

	e.loader.Start(context.Background())

	if e.cfg.Watch {
		w, err := script.NewWatcher(scriptPath, e.Reload, e.log, script.WithEncoding(e.cfg.Encoding))
		if err != nil {
			e.log.Warn("script watch disabled", "path", scriptPath, "error", err)
		} else {
			e.watcher = w
		}
	}

	e.log.Info("engine initialized",
		"backend", e.backend.Name(), "lines", prog.Len(), "modules", len(e.modules.Modules()))
	return nil
}

// openStore セーブモジュールがあればそれを、なければ組み込みの SQLite ストアを開く
func (e *Engine) openStore(savePath string) (persist.Store, error) {
	if sp := e.modules.SaveProvider(); sp != nil {
		e.log.Info("using save module")
		return persist.NewProviderStore(sp), nil
	}
	path := DefaultSaveDatabase
	if savePath != "" {
		path = filepath.Join(savePath, DefaultSaveDatabase)
	}
	s, err := persist.OpenSQLite(path, persist.DefaultTable)
	if err != nil {
		return nil, fmt.Errorf("failed to open save store: %w", err)
	}
	return s, nil
}

// Run ウィンドウを開いてゲームループを実行する
func (e *Engine) Run(ctx context.Context) error {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}
	return RunGame(ctx, e)
}

// Shutdown ローダー停止 → キャッシュ解放 → バックエンド解放 → モジュール終了 → ストアを閉じる
// 複数回呼んでも安全
func (e *Engine) Shutdown() {
	e.shutdownOnce.Do(func() {
		if e.watcher != nil {
			e.watcher.Close()
		}
		if e.loader != nil {
			e.loader.Stop()
		}

		e.mu.Lock()
		if e.video != nil {
			e.finishVideo()
		}
		if e.cache != nil {
			e.cache.Release()
		}
		if e.backend != nil {
			e.backend.Cleanup()
		}
		e.initialized = false
		e.mu.Unlock()

		if e.mixer != nil {
			e.mixer.Close()
		}
		e.modules.Shutdown()
		if e.store != nil {
			if err := e.store.Close(); err != nil {
				e.log.Warn("failed to close save store", "error", err)
			}
		}
		e.log.Info("engine shut down")
	})
}

// Reload スクリプトを差し替える（監視からのコールバック）
func (e *Engine) Reload(prog *script.Program) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.interp == nil {
		return
	}
	e.interp.SetProgram(prog)
	e.log.Info("script reloaded", "path", prog.Path, "lines", prog.Len())
}

// Frame 1フレーム分の処理。動画再生中は動画を進め、そうでなければ
// ゲーム画面で最大1ビートだけインタプリタを進める
func (e *Engine) Frame(now time.Time) error {
	e.mu.Lock()
	if err := e.checkLocked(); err != nil {
		e.mu.Unlock()
		return err
	}
	if e.video != nil {
		e.stepVideo(now)
	} else if e.interp.Mode() == ScreenGame {
		e.interp.RequestAdvance()
		e.interp.Tick()
	}
	e.mu.Unlock()

	if e.mixer != nil {
		e.mixer.Update()
	}
	return nil
}

// Render 表示中の画面をバックエンドで描画し、screen に転送する（screen は nil 可）
// 描画したエントリ数を返す
func (e *Engine) Render(screen *ebiten.Image) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return 0, render.ErrBackendNotInitialized
	}

	n, err := e.backend.Render(e.interp.Active())
	if err != nil {
		e.fatal = err
		e.log.Error("render failed", "backend", e.backend.Name(), "error", err)
		return n, err
	}
	e.backend.Present(screen)
	return n, nil
}

func (e *Engine) checkLocked() error {
	switch {
	case !e.initialized:
		return render.ErrBackendNotInitialized
	case e.fatal != nil:
		return e.fatal
	case e.quit:
		return ErrQuit
	}
	return nil
}

// Status インタプリタの進行状態
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.interp.Status()
}

// Screen 表示中の画面
func (e *Engine) Screen() Screen {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.interp.Mode()
}

// State インタプリタ状態のコピー
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.interp.State()
}

// VideoPlaying 動画を再生中か
func (e *Engine) VideoPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.video != nil
}

// Resident リソースがバックエンドに常駐しているか
func (e *Engine) Resident(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.backend != nil && e.backend.Resident(name)
}

// LoaderStats ローダーのデコード数
func (e *Engine) LoaderStats() resource.Stats {
	return e.loader.Stats()
}

// Save 現在の状態をスロットに保存
func (e *Engine) Save(slot int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saves.Save(slot)
}

// Load スロットから状態を復元してゲーム画面に切り替える
func (e *Engine) Load(slot int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadLocked(slot)
}

func (e *Engine) loadLocked(slot int) error {
	var pending *videoPlayback
	if e.video != nil {
		pending = e.video
		e.video = nil
	}
	if _, err := e.saves.Load(slot); err != nil {
		e.video = pending
		return err
	}
	if pending != nil {
		e.releaseVideo(pending)
	}
	e.interp.EnterScreen(ScreenGame)
	return nil
}

// lockedState は persist.Target の実装。e.mu を保持した状態で呼ばれる
type lockedState Engine

func (s *lockedState) Snapshot() persist.Document {
	e := (*Engine)(s)
	doc := e.interp.Snapshot()
	if e.video != nil {
		// 動画再生中は再生前の画面を保存する
		doc.Images = e.video.saved.Clone()
		if doc.Images == nil {
			doc.Images = render.DisplayList{}
		}
	}
	return doc
}

func (s *lockedState) Restore(doc persist.Document) {
	(*Engine)(s).interp.Restore(doc)
}

// RequestResource 未常駐のリソースをローダーに要求する
func (e *Engine) RequestResource(name string) {
	if e.backend.Resident(name) {
		return
	}
	if e.loader.Request(name) {
		e.log.Debug("resource requested", "name", name)
	}
}

// RenderText テキストを描画してバックエンドに常駐させる
func (e *Engine) RenderText(key, text string, x, y int) (int, int, error) {
	img := e.text.Rasterize(text)
	b := img.Bounds()
	if err := e.backend.RenderText(key, img, x, y, b.Dx(), b.Dy()); err != nil {
		return 0, 0, err
	}
	return b.Dx(), b.Dy(), nil
}

// PlaySound 効果音を再生（未読み込みなら要求だけする）
func (e *Engine) PlaySound(name string) {
	pcm, ok := e.cache.Sound(name)
	if !ok {
		e.loader.Request(name)
		e.log.Debug("sound not loaded yet", "name", name)
		return
	}
	if e.mixer != nil {
		e.mixer.PlaySound(name, pcm)
	}
}

// PlayMusic BGM を再生（未読み込みなら要求だけする）
func (e *Engine) PlayMusic(name string, loops int) {
	track, ok := e.cache.Music(name)
	if !ok {
		e.loader.Request(name)
		e.log.Debug("music not loaded yet", "name", name)
		return
	}
	if e.mixer == nil {
		return
	}
	if err := e.mixer.PlayMusic(name, track, loops); err != nil {
		e.log.Warn("failed to play music", "name", name, "error", err)
	}
}

// StopMusic BGM を停止
func (e *Engine) StopMusic() {
	if e.mixer != nil {
		e.mixer.StopMusic()
	}
}

// SetVolume 音量を設定し、範囲内に丸めた値を返す
func (e *Engine) SetVolume(n int) int {
	if e.mixer == nil {
		return max(0, min(n, audio.MaxVolume))
	}
	return e.mixer.SetVolume(n)
}

// PlayVideo 動画の再生を開始する。再生中はゲーム画面の表示リストを動画1枚に置き換える
func (e *Engine) PlayVideo(name string, x, y, w, h int) {
	if e.video != nil {
		e.finishVideo()
	}

	path, _, err := fileutil.ResolveAsset(e.cfg.Root, name, ".ivf")
	if err != nil {
		e.log.Warn("video not found", "name", name, "error", err)
		return
	}
	src, err := e.openVideo(path)
	if err != nil {
		e.log.Warn("failed to open video", "name", name, "error", err)
		return
	}

	session := video.NewSession(name, src, x, y, w, h)
	e.video = &videoPlayback{
		session: session,
		saved:   e.interp.DisplayList(ScreenGame).Clone(),
	}
	e.interp.SetDisplayList(ScreenGame, render.DisplayList{
		{Name: session.Key(), X: x, Y: y, W: w, H: h},
	})
	e.video.sound = e.playVideoAudio(name)
	e.log.Info("video started", "name", name, "path", path)
}

// playVideoAudio 動画と同名の wav があれば一緒に再生し、ミキサー上の名前を返す
func (e *Engine) playVideoAudio(name string) string {
	if e.mixer == nil {
		return ""
	}
	path, _, err := fileutil.ResolveAsset(e.cfg.Root, name, ".wav")
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		e.log.Warn("failed to read video audio", "name", name, "error", err)
		return ""
	}
	pcm, err := audio.DecodeSound(data)
	if err != nil {
		e.log.Warn("failed to decode video audio", "name", name, "error", err)
		return ""
	}
	key := "video_" + name
	e.mixer.PlaySound(key, pcm)
	return key
}

// releaseVideo フレームと音声を止めて動画の一時リソースを解放する
func (e *Engine) releaseVideo(v *videoPlayback) {
	v.session.Cancel()
	e.backend.Unload(v.session.Key())
	if v.sound != "" && e.mixer != nil {
		e.mixer.StopSound(v.sound)
	}
}

// stepVideo 次のフレームが来ていれば差し替え、終了していれば後始末する
func (e *Engine) stepVideo(now time.Time) {
	s := e.video.session
	if img := s.Step(now); img != nil {
		if err := e.backend.RenderText(s.Key(), img, s.X, s.Y, s.W, s.H); err != nil {
			e.log.Warn("failed to upload video frame", "name", s.Name, "error", err)
		}
	}
	if s.Done() {
		e.finishVideo()
	}
}

// finishVideo 動画を止めて一時リソースを解放し、ゲーム画面を元に戻す
func (e *Engine) finishVideo() {
	v := e.video
	e.video = nil
	e.releaseVideo(v)
	e.interp.SetDisplayList(ScreenGame, v.saved)

	if err := v.session.Err(); err != nil {
		e.log.Warn("video playback failed", "name", v.session.Name, "error", err)
		return
	}
	e.log.Info("video finished", "name", v.session.Name)
}
