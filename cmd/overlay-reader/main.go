// overlay-reader のエントリポイント。
// memory_tiers と cc_evidence をSELECT文だけで読み出すHTTPゲートウェイを起動する。
// 設定ファイルは --env-path、OVERLAY_READER_ENV_PATH、~/.openclaw/overlay-reader.env、
// 実行ファイルと同じディレクトリの overlay-reader.env の順に探す。
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/nao1215/overlay/internal/reader"
	"github.com/nao1215/overlay/pkg/envconfig"
	"github.com/nao1215/overlay/pkg/store"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Printf("[%s] %v", envconfig.Reader.Name, err)
		os.Exit(1)
	}
}

// newRootCmd はoverlay-readerのルートコマンドを生成する。
func newRootCmd() *cobra.Command {
	var envPath string

	cmd := &cobra.Command{
		Use:           envconfig.Reader.Name,
		Short:         "memory_tiers と cc_evidence の読み取り専用ゲートウェイ",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(envPath)
		},
	}
	cmd.Flags().StringVar(&envPath, "env-path", "", "設定ファイルのパス（"+envconfig.Reader.Key("ENV_PATH")+"より優先）")

	return cmd
}

// run は設定を読み込み、サーバーを起動する。正常に起動した場合は戻らない。
func run(envPath string) error {
	cfg, err := envconfig.Load(envconfig.Reader, envconfig.Options{OverridePath: envPath})
	if err != nil {
		return fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	provider, err := store.NewProvider(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("データベース設定が不正: %w", err)
	}

	log.Printf("[%s] 設定ファイル: %s", cfg.Service, cfg.Source)
	server := reader.NewServer(cfg, store.NewGateway(provider))
	if err := server.Run(); err != nil {
		return fmt.Errorf("サーバーの起動に失敗: %w", err)
	}
	return nil
}
