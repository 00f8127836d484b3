package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultProjectFile はプロジェクトディレクトリ内で探す設定ファイル名
const DefaultProjectFile = "novella.toml"

// Config はコマンドライン引数から解析された設定を保持する
type Config struct {
	ProjectDir  string        // プロジェクトのルートディレクトリ
	ProjectFile string        // プロジェクト設定ファイル（TOML）
	ScriptPath  string        // スクリプトファイル（プロジェクト設定より優先）
	SavePath    string        // セーブデータの保存先（プロジェクト設定より優先）
	Backend     string        // 描画バックエンド（opengl, vulkan）
	Timeout     time.Duration // タイムアウト時間（0は無制限）
	LogLevel    string        // ログレベル（debug, info, warn, error）
	Headless    bool          // ヘッドレスモード
	ShowHelp    bool          // ヘルプ表示フラグ
}

// 値を取らないフラグ（reorderArgsで次の引数を消費しない）
var boolFlags = map[string]bool{
	"-h": true, "--h": true, "-help": true, "--help": true,
	"-headless": true, "--headless": true,
}

// ParseArgs コマンドライン引数を解析してConfigを返す
func ParseArgs(args []string) (*Config, error) {
	// 引数を並べ替え：フラグを前に、位置引数を後ろに
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("novella", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	config := &Config{}

	var timeoutSec int
	fs.IntVar(&timeoutSec, "timeout", 0, "タイムアウト時間（秒）")
	fs.IntVar(&timeoutSec, "t", 0, "タイムアウト時間（秒）（短縮形）")
	fs.StringVar(&config.LogLevel, "log-level", "info", "ログレベル（debug, info, warn, error）")
	fs.StringVar(&config.LogLevel, "l", "info", "ログレベル（短縮形）")
	fs.StringVar(&config.ProjectFile, "project", "", "プロジェクト設定ファイル")
	fs.StringVar(&config.ProjectFile, "p", "", "プロジェクト設定ファイル（短縮形）")
	fs.StringVar(&config.ScriptPath, "script", "", "スクリプトファイル")
	fs.StringVar(&config.ScriptPath, "s", "", "スクリプトファイル（短縮形）")
	fs.StringVar(&config.SavePath, "save", "", "セーブデータの保存先")
	fs.StringVar(&config.SavePath, "S", "", "セーブデータの保存先（短縮形）")
	fs.StringVar(&config.Backend, "backend", "", "描画バックエンド（opengl, vulkan）")
	fs.StringVar(&config.Backend, "b", "", "描画バックエンド（短縮形）")
	fs.BoolVar(&config.Headless, "headless", false, "ヘッドレスモード")
	fs.BoolVar(&config.ShowHelp, "help", false, "ヘルプを表示")
	fs.BoolVar(&config.ShowHelp, "h", false, "ヘルプを表示（短縮形）")

	if err := fs.Parse(reorderedArgs); err != nil {
		return nil, err
	}

	// 環境変数からの設定（コマンドラインフラグが優先）
	if !config.Headless {
		if headlessEnv := os.Getenv("NOVELLA_HEADLESS"); headlessEnv != "" {
			config.Headless = headlessEnv == "1" || strings.ToLower(headlessEnv) == "true"
		}
	}

	if timeoutSec == 0 {
		if timeoutEnv := os.Getenv("NOVELLA_TIMEOUT"); timeoutEnv != "" {
			if t, err := strconv.Atoi(timeoutEnv); err == nil && t > 0 {
				timeoutSec = t
			}
		}
	}

	if config.LogLevel == "info" {
		if logLevelEnv := os.Getenv("NOVELLA_LOG_LEVEL"); logLevelEnv != "" {
			config.LogLevel = strings.ToLower(logLevelEnv)
		}
	}

	if config.Backend == "" {
		config.Backend = strings.ToLower(os.Getenv("NOVELLA_BACKEND"))
	}

	// タイムアウトの検証
	if timeoutSec < 0 {
		return nil, fmt.Errorf("timeout must be non-negative, got %d", timeoutSec)
	}
	config.Timeout = time.Duration(timeoutSec) * time.Second

	// ログレベルの検証
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[config.LogLevel] {
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)
	}

	// バックエンドの検証（空はプロジェクト設定に従う）
	switch config.Backend {
	case "", "opengl", "vulkan":
	default:
		return nil, fmt.Errorf("invalid backend: %s (must be opengl or vulkan)", config.Backend)
	}

	// 位置引数（プロジェクトのパス）
	if fs.NArg() > 0 {
		path := fs.Arg(0)

		// TOMLファイルが指定された場合、ディレクトリと設定ファイルに分離
		if strings.HasSuffix(strings.ToLower(path), ".toml") {
			config.ProjectDir = filepath.Dir(path)
			if config.ProjectFile == "" {
				config.ProjectFile = path
			}
		} else {
			config.ProjectDir = path
		}
	}

	if config.ProjectFile == "" && config.ProjectDir != "" {
		config.ProjectFile = filepath.Join(config.ProjectDir, DefaultProjectFile)
	}

	return config, nil
}

// reorderArgs 引数を並べ替えて、フラグを前に、位置引数を後ろに配置する
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if len(arg) > 0 && arg[0] == '-' {
			flags = append(flags, arg)

			// -t 5 のように値が続く場合は次の引数も取り込む
			if strings.Contains(arg, "=") || boolFlags[arg] {
				continue
			}
			if i+1 < len(args) && len(args[i+1]) > 0 && args[i+1][0] != '-' {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, arg)
		}
	}

	return append(flags, positional...)
}

// PrintHelp ヘルプメッセージを表示
func PrintHelp(w io.Writer) {
	fmt.Fprintf(w, `novella - visual novel runtime

Usage:
  novella [options] [project-path]

Arguments:
  project-path  プロジェクトのディレクトリ（novella.toml を含む）、または設定ファイルのパス

Options:
  -p, --project <file>        プロジェクト設定ファイル（TOML）
  -s, --script <file>         スクリプトファイル（設定ファイルより優先）
  -S, --save <dir>            セーブデータの保存先
  -b, --backend <name>        描画バックエンド: opengl, vulkan
  -t, --timeout <seconds>     指定秒数後にプログラムを終了（デフォルト: 無制限）
  -l, --log-level <level>     ログレベル: debug, info, warn, error（デフォルト: info）
  --headless                  ヘッドレスモード（GUIなし、音声ミュート）
  -h, --help                  このヘルプを表示

Environment Variables:
  NOVELLA_HEADLESS=1          ヘッドレスモードを有効化
  NOVELLA_TIMEOUT=<seconds>   タイムアウト時間（秒）
  NOVELLA_LOG_LEVEL=<level>   ログレベル
  NOVELLA_BACKEND=<name>      描画バックエンド

Examples:
  novella ./mygame                    ディレクトリを指定（novella.toml を読み込む）
  novella ./mygame/novella.toml       設定ファイルを明示的に指定
  novella -s script.txt -b vulkan     設定ファイルなしでスクリプトを直接実行
  novella --headless --timeout 10     ヘッドレスで10秒後に自動終了
`)
}
