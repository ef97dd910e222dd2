package envconfig

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ErrMissingKey は必須の設定値が存在しない場合のエラー。
var ErrMissingKey = errors.New("必須の設定値がありません")

// canonicalDirName はホームディレクトリ配下の設定ディレクトリ名。
const canonicalDirName = ".openclaw"

// defaultBind はバインドアドレスの既定値。
const defaultBind = "127.0.0.1"

// defaultDriver はデータベースドライバの既定値。
const defaultDriver = "pgx"

// Service はサービスごとの設定の名前空間を表す。
type Service struct {
	// Name はサービス名。設定ファイル名とログのプレフィックスに使う。
	Name string
	// Prefix は設定キーのプレフィックス。
	Prefix string
	// DefaultPort はポートが未設定の場合に使うポート番号。
	DefaultPort int
}

var (
	// Reader は読み取りサービスの名前空間。
	Reader = Service{Name: "overlay-reader", Prefix: "OVERLAY_READER", DefaultPort: 18795}
	// Writer は書き込みサービスの名前空間。
	Writer = Service{Name: "overlay-writer", Prefix: "OVERLAY_WRITER", DefaultPort: 18794}
)

// Key はプレフィックス付きの設定キーを返す。
func (s Service) Key(name string) string {
	return s.Prefix + "_" + name
}

// Config は起動時に一度だけ構築され、以降は読み取り専用で共有される設定。
type Config struct {
	// Service はサービス名。
	Service string
	// Source は実際に読み込んだ設定ファイルのパス。
	Source string
	// Bind はリッスンするアドレス。
	Bind string
	// Port はリッスンするポート番号。
	Port int
	// Token はBearer認証で照合する共有シークレット。
	Token string
	// DatabaseURL はデータベースの接続文字列。
	DatabaseURL string
	// DatabaseDriver は接続に使うドライバ名（pgx, postgres, sqlite）。
	DatabaseDriver string
}

// Addr はリッスンアドレスを host:port 形式で返す。
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

// Options は設定の読み込み方法を調整する。ゼロ値の場合はプロセスの環境を使う。
type Options struct {
	// OverridePath はコマンドラインで指定された設定ファイルのパス。環境変数より優先する。
	OverridePath string
	// HomeDir は正規パスの基点となるホームディレクトリ。
	HomeDir string
	// LocalDir はローカル設定ファイルを探すディレクトリ。空なら実行ファイルのディレクトリ。
	LocalDir string
	// LookupEnv は環境変数の参照関数。空なら os.LookupEnv。
	LookupEnv func(key string) (string, bool)
}

// Load は設定ファイルを解決して読み込み、Configを構築する。
// 必須値の欠落やファイルの不在は起動を継続できないエラーとして返す。
func Load(svc Service, opts Options) (*Config, error) {
	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	loc, err := locations(svc, opts, lookup)
	if err != nil {
		return nil, err
	}

	path, err := Resolve(loc)
	if err != nil {
		return nil, err
	}

	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("[%s] 設定ファイルの読み込みに失敗: %s: %w", svc.Name, path, err)
	}

	// dotenvと同じく、プロセスの環境変数がファイルの値より優先される
	get := func(name string) string {
		key := svc.Key(name)
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return values[key]
	}
	require := func(name string) (string, error) {
		v := get(name)
		if v == "" {
			return "", fmt.Errorf("[%s] %w: %s", svc.Name, ErrMissingKey, svc.Key(name))
		}
		return v, nil
	}

	token, err := require("TOKEN")
	if err != nil {
		return nil, err
	}
	dbURL, err := require("DB_URL")
	if err != nil {
		return nil, err
	}

	port := svc.DefaultPort
	if raw := strings.TrimSpace(get("PORT")); raw != "" {
		port, err = strconv.Atoi(raw)
		if err != nil || port < 1 || port > 65535 {
			return nil, fmt.Errorf("[%s] %s が不正です: %q", svc.Name, svc.Key("PORT"), raw)
		}
	}

	bind := get("BIND")
	if bind == "" {
		bind = defaultBind
	}
	driver := get("DB_DRIVER")
	if driver == "" {
		driver = defaultDriver
	}

	return &Config{
		Service:        svc.Name,
		Source:         path,
		Bind:           bind,
		Port:           port,
		Token:          token,
		DatabaseURL:    dbURL,
		DatabaseDriver: driver,
	}, nil
}

// locations はサービスの探索先を組み立てる。
func locations(svc Service, opts Options, lookup func(string) (string, bool)) (Locations, error) {
	override := strings.TrimSpace(opts.OverridePath)
	if override == "" {
		if v, ok := lookup(svc.Key("ENV_PATH")); ok {
			override = strings.TrimSpace(v)
		}
	}

	home := opts.HomeDir
	if home == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return Locations{}, fmt.Errorf("[%s] ホームディレクトリの取得に失敗: %w", svc.Name, err)
		}
		home = h
	}

	localDir := opts.LocalDir
	if localDir == "" {
		exe, err := os.Executable()
		if err != nil {
			return Locations{}, fmt.Errorf("[%s] 実行ファイルのパス取得に失敗: %w", svc.Name, err)
		}
		localDir = filepath.Dir(exe)
	}

	fileName := svc.Name + ".env"
	return Locations{
		Service:     svc.Name,
		OverrideVar: svc.Key("ENV_PATH"),
		Override:    override,
		Canonical:   filepath.Join(home, canonicalDirName, fileName),
		Local:       filepath.Join(localDir, fileName),
	}, nil
}
