// Package app はコマンドライン引数からエンジンを組み立てて実行する
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/zurustar/novella/pkg/audio"
	"github.com/zurustar/novella/pkg/cli"
	"github.com/zurustar/novella/pkg/engine"
	"github.com/zurustar/novella/pkg/logger"
	"github.com/zurustar/novella/pkg/project"
)

// Application はアプリケーションのメインロジックを管理する
type Application struct {
	config  *cli.Config
	project *project.Config
	log     *slog.Logger
	stdout  io.Writer
}

// New Applicationを作成
func New() *Application {
	return &Application{stdout: os.Stdout}
}

// Run アプリケーションを実行
func (app *Application) Run(args []string) error {
	// 1. コマンドライン引数の解析
	if err := app.parseArgs(args); err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}

	if app.config.ShowHelp {
		cli.PrintHelp(app.stdout)
		return nil
	}

	// 2. ロガーの初期化
	if err := app.initLogger(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.log.Info("Application started")

	// 3. プロジェクト設定の読み込み
	proj, err := loadProject(app.config)
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}
	app.project = proj

	app.log.Info("Project loaded", "root", proj.Root, "backend", proj.RenderBackend, "modules", proj.Modules)

	// 4. エンジンの初期化
	e := engine.New(engineConfig(app.config, proj),
		engine.WithEngineLogger(app.log),
		engine.WithMixer(app.newMixer()))

	scriptPath, savePath := app.paths()
	if err := e.Init(scriptPath, savePath); err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	defer e.Shutdown()

	// 5. ゲームループの実行
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if app.config.Headless {
		app.log.Info("Headless mode: running without window")
		err = e.RunHeadless(ctx)
	} else {
		err = e.Run(ctx)
	}
	if err != nil {
		return fmt.Errorf("game loop failed: %w", err)
	}

	app.log.Info("Application terminated normally")
	return nil
}

// parseArgs コマンドライン引数を解析
func (app *Application) parseArgs(args []string) error {
	config, err := cli.ParseArgs(args)
	if err != nil {
		return err
	}
	app.config = config
	return nil
}

// initLogger ロガーを初期化
func (app *Application) initLogger() error {
	if err := logger.InitLogger(app.config.LogLevel); err != nil {
		return err
	}
	app.log = logger.GetLogger()
	return nil
}

// paths コマンドライン指定を優先してスクリプトとセーブ先を決める
func (app *Application) paths() (string, string) {
	scriptPath := app.project.ScriptPath()
	if app.config.ScriptPath != "" {
		scriptPath = app.config.ScriptPath
	}
	savePath := app.project.SavePath()
	if app.config.SavePath != "" {
		savePath = app.config.SavePath
	}
	return scriptPath, savePath
}

// newMixer 音声ミキサーを作成（ヘッドレスではミュート）
func (app *Application) newMixer() *audio.Mixer {
	opts := []audio.Option{
		audio.WithLogger(logger.Component("audio")),
		audio.WithMuted(app.config.Headless),
	}
	if sf := loadSoundFont(app.log, findSoundFont(app.project.SoundFontPath(), app.project.Root)); sf != nil {
		opts = append(opts, audio.WithSoundFont(sf))
	}
	return audio.NewMixer(nil, opts...)
}

// loadProject プロジェクト設定を読み込む
// 既定名の設定ファイルがなければデフォルト設定で起動する
func loadProject(cfg *cli.Config) (*project.Config, error) {
	root := cfg.ProjectDir
	if root == "" {
		root = "."
	}
	if cfg.ProjectFile == "" {
		return project.Default(root), nil
	}

	proj, err := project.Load(cfg.ProjectFile)
	if err == nil {
		return proj, nil
	}
	if errors.Is(err, fs.ErrNotExist) && filepath.Base(cfg.ProjectFile) == cli.DefaultProjectFile {
		return project.Default(root), nil
	}
	return nil, err
}

// engineConfig プロジェクト設定とコマンドライン指定からエンジン設定を作る
func engineConfig(cfg *cli.Config, proj *project.Config) engine.Config {
	backend := proj.RenderBackend
	if cfg.Backend != "" {
		backend = cfg.Backend
	}
	if cfg.Headless {
		backend = "headless"
	}
	volume := proj.Volume()
	return engine.Config{
		Root:     proj.Root,
		Backend:  backend,
		Width:    proj.Canvas.Width,
		Height:   proj.Canvas.Height,
		Modules:  proj.Modules,
		FontPath: proj.FontPath(),
		FontSize: proj.Text.Size,
		Encoding: proj.Script.Encoding,
		Watch:    proj.Script.Watch,
		Volume:   &volume,
		Timeout:  cfg.Timeout,
	}
}
