package app

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hitoshi/taskman/internal/config"
)

// RootOptions は全サブコマンド共通のフラグを保持する。
type RootOptions struct {
	ConfigPath string
}

// NewRootCommand はtaskmanのルートコマンドを生成する。
// サブコマンドを省略した場合はserveとして動作する。
func NewRootCommand(w io.Writer) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "taskman",
		Short:         "taskman - multi-tenant task tracking API",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), w, opts)
		},
	}
	cmd.SetOut(w)
	cmd.SetErr(w)

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "YAML config file (env: CONFIG_FILE)")

	cmd.AddCommand(newServeCommand(w, opts))
	cmd.AddCommand(newWorkerCommand(w, opts))
	cmd.AddCommand(newMigrateCommand(w, opts))
	cmd.AddCommand(newHealthcheckCommand())

	return cmd
}

func newServeCommand(w io.Writer, opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), w, opts)
		},
	}
}

func newWorkerCommand(w io.Writer, opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run background jobs (expired session cleanup)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := Init(w, opts.ConfigPath, config.LoadDatabase)
			if err != nil {
				return err
			}
			return runWorker(cmd.Context(), cfg)
		},
	}
}

func newMigrateCommand(w io.Writer, opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply all pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := Init(w, opts.ConfigPath, config.LoadDatabase)
			if err != nil {
				return err
			}
			return runMigrate(cmd.Context(), cfg)
		},
	}
}

// newHealthcheckCommand はdistroless環境でのDockerヘルスチェック用サブコマンドを生成する。
// 設定ファイルは読まず、SERVER_PORTのみを参照する。
func newHealthcheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "healthcheck",
		Short: "Probe the local /health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			port := os.Getenv("SERVER_PORT")
			if port == "" {
				port = "8080"
			}
			return runHealthcheck(port)
		},
	}
}

func serve(ctx context.Context, w io.Writer, opts *RootOptions) error {
	cfg, err := Init(w, opts.ConfigPath, config.Load)
	if err != nil {
		return err
	}
	return runServe(ctx, cfg)
}

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。SIGINTまたはSIGTERMで終了する。
func Run(w io.Writer, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCommand(w)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}
