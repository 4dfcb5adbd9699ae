// Command text2sql serves and runs the Korean natural-language-to-SQL
// pipeline.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/hanq-labs/text2sql/pkg/config"
	"github.com/hanq-labs/text2sql/pkg/db"
	"github.com/hanq-labs/text2sql/pkg/faillog"
	"github.com/hanq-labs/text2sql/pkg/llm"
	"github.com/hanq-labs/text2sql/pkg/pipeline"
	"github.com/hanq-labs/text2sql/pkg/schema"
	"github.com/hanq-labs/text2sql/pkg/server"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var useMock bool

	root := &cobra.Command{
		Use:           "text2sql",
		Short:         "Korean natural-language to SQL conversion service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&useMock, "mock-db", false, "use the in-memory mock database adapter")

	root.AddCommand(serveCmd(&useMock))
	root.AddCommand(queryCmd(&useMock))
	root.AddCommand(interactiveCmd(&useMock))
	root.AddCommand(pingCmd())
	return root
}

// components wires the service from configuration. The caller owns Close on
// the returned adapter.
func components(useMock bool) (*config.Config, *slog.Logger, *pipeline.Pipeline, db.Adapter, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, nil, err
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level}))

	catalog, err := schema.Load(cfg.SchemaPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	var adapter db.Adapter
	if useMock || cfg.Database.DSN == "" {
		log.Info("using mock database adapter")
		adapter = db.NewMock()
	} else {
		adapter = db.NewPostgres(cfg.Database.DSN, cfg.Database.QueryTimeout, log)
	}

	p, err := pipeline.New(pipeline.Config{
		Logger:  log,
		LLM:     llm.NewAnthropicClient(cfg.LLM, log),
		DB:      adapter,
		Catalog: catalog,
		FailLog: faillog.New(cfg.FailureLogDir),
	})
	if err != nil {
		adapter.Close()
		return nil, nil, nil, nil, err
	}

	return cfg, log, p, adapter, nil
}

func serveCmd(useMock *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, p, adapter, err := components(*useMock)
			if err != nil {
				return err
			}
			defer adapter.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := server.New(log, p, adapter)
			return srv.Run(ctx, cfg.ListenAddr)
		},
	}
}

func queryCmd(useMock *bool) *cobra.Command {
	var explain bool

	cmd := &cobra.Command{
		Use:   "query <질의>",
		Short: "Convert one natural-language query and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, p, adapter, err := components(*useMock)
			if err != nil {
				return err
			}
			defer adapter.Close()

			resp, err := p.Convert(cmd.Context(), pipeline.Request{
				Query:              args[0],
				IncludeExplanation: explain,
			})
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))

			if !resp.Success {
				return fmt.Errorf("conversion failed: %s", resp.ErrorMessage)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&explain, "explain", false, "include the SQL explanation")
	return cmd
}

func interactiveCmd(useMock *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Convert queries in a read-eval loop",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, p, adapter, err := components(*useMock)
			if err != nil {
				return err
			}
			defer adapter.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "한국어 질의를 입력하면 SQL로 변환합니다. 종료: quit / exit / 종료")

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "\n질의> ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				input := strings.TrimSpace(scanner.Text())
				switch strings.ToLower(input) {
				case "":
					continue
				case "quit", "exit", "종료", "끝":
					return nil
				}

				resp, err := p.Convert(cmd.Context(), pipeline.Request{
					Query:              input,
					IncludeExplanation: true,
				})
				if err != nil {
					fmt.Fprintf(out, "오류: %v\n", err)
					continue
				}

				if !resp.Success {
					fmt.Fprintf(out, "변환 실패: %s\n", resp.ErrorMessage)
					continue
				}

				fmt.Fprintf(out, "변환 성공 (%.2f초, 재시도 %d회)\n",
					resp.ProcessingTime.Seconds(), resp.Metadata.RetryCount)
				fmt.Fprintln(out, resp.SQL)
				if resp.Explanation != "" {
					fmt.Fprintln(out, resp.Explanation)
				}
				fmt.Fprintf(out, "%d건 조회\n", resp.Metadata.RowCount)
				if cfg.Debug {
					for i, step := range resp.ProcessingSteps {
						fmt.Fprintf(out, "  %d. %s\n", i+1, step)
					}
				}
			}
		},
	}
}

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check database connectivity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := baseComponents()
			if err != nil {
				return err
			}

			var adapter db.Adapter
			if cfg.Database.DSN == "" {
				adapter = db.NewMock()
			} else {
				adapter = db.NewPostgres(cfg.Database.DSN, cfg.Database.QueryTimeout, log)
			}
			defer adapter.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			if !adapter.TestConnection(ctx) {
				return fmt.Errorf("database is not reachable")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "database connection ok")
			return nil
		},
	}
}

// baseComponents loads config and logger without the pipeline, for commands
// that only need the database.
func baseComponents() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level}))
	return cfg, log, nil
}
