package envconfig

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

var (
	// ErrOverrideNotFound は上書き指定されたパスにファイルが存在しない場合のエラー。
	ErrOverrideNotFound = errors.New("上書き指定された設定ファイルが見つかりません")
	// ErrNoConfigFile は正規パスとローカルパスのどちらにも設定ファイルがない場合のエラー。
	ErrNoConfigFile = errors.New("設定ファイルが見つかりません")
)

// Locations は設定ファイルの探索先を表す。
type Locations struct {
	// Service はログとエラーメッセージに使うサービス名。
	Service string
	// OverrideVar は上書きパスを指定する環境変数名。エラーメッセージで案内するために使う。
	OverrideVar string
	// Override は上書き指定されたパス。空の場合は未指定として扱う。
	Override string
	// Canonical はホームディレクトリ配下の正規パス。
	Canonical string
	// Local は実行ファイルと同じディレクトリのブートストラップ用パス。
	Local string
}

// Resolve は読み込むべき設定ファイルのパスを決定する。
// 正規パスが存在しない場合はローカルファイルからの初期配置を一度だけ行い、
// その後は正規パスをローカルパスより優先する。
func Resolve(loc Locations) (string, error) {
	if loc.Override != "" {
		p, err := filepath.Abs(loc.Override)
		if err != nil {
			return "", fmt.Errorf("[%s] 上書きパスの解決に失敗: %w", loc.Service, err)
		}
		if !exists(p) {
			return "", fmt.Errorf("[%s] %s が設定されていますが %w: %s", loc.Service, loc.OverrideVar, ErrOverrideNotFound, p)
		}
		return p, nil
	}

	if !exists(loc.Canonical) && exists(loc.Local) {
		copied, err := CopyIfMissing(loc.Local, loc.Canonical)
		if err != nil {
			return "", fmt.Errorf("[%s] 設定ファイルの初期配置に失敗: %w", loc.Service, err)
		}
		if copied {
			log.Printf("[%s] 設定ファイルを初期配置しました: %s", loc.Service, loc.Canonical)
		}
	}

	switch {
	case exists(loc.Canonical):
		return loc.Canonical, nil
	case exists(loc.Local):
		return loc.Local, nil
	}

	return "", fmt.Errorf("[%s] %w\n確認したパス:\n  - %s\n  - %s\n対処: どちらかに %s.env を置くか、%s を設定してください",
		loc.Service, ErrNoConfigFile, loc.Canonical, loc.Local, loc.Service, loc.OverrideVar)
}

// CopyIfMissing はdstが存在しない場合に限りsrcをdstへコピーする。
// 同じディレクトリに一時ファイルを書き切ってからリネームするため、dstは
// 完全な内容で現れるか、まったく現れないかのどちらかになる。
// コピーした場合にtrueを返す。
func CopyIfMissing(src, dst string) (bool, error) {
	if !exists(src) || exists(dst) {
		return false, nil
	}

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return false, fmt.Errorf("ディレクトリの作成に失敗: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return false, fmt.Errorf("コピー元のオープンに失敗: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(dir, filepath.Base(dst)+".*.tmp")
	if err != nil {
		return false, fmt.Errorf("一時ファイルの作成に失敗: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// リネーム済みなら何もしない
		_ = os.Remove(tmpName)
	}()

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return false, fmt.Errorf("一時ファイルへの書き込みに失敗: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return false, fmt.Errorf("一時ファイルの同期に失敗: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("一時ファイルのクローズに失敗: %w", err)
	}

	// 並行して起動した別プロセスが先に配置した場合は上書きしない
	if exists(dst) {
		return false, nil
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return false, fmt.Errorf("一時ファイルのリネームに失敗: %w", err)
	}
	return true, nil
}

func exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
