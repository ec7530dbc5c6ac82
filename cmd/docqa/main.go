// Command docqa serves the document question-answering API.
//
//	docqa serve [--config docqa.yaml]
//	docqa extract report.pdf notes.docx [--max-chars 50000]
//	docqa env-check
//
// A .env file in the working directory is loaded first and overrides the
// process environment.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/docqa/answer"
	"github.com/hazyhaar/docqa/assistant"
	"github.com/hazyhaar/docqa/dbopen"
	"github.com/hazyhaar/docqa/docpipe"
	"github.com/hazyhaar/docqa/feedback"
	"github.com/hazyhaar/docqa/observability"
	"github.com/hazyhaar/docqa/session"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:          "docqa",
		Short:        "Ask questions about uploaded documents",
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if _, err := os.Stat(".env"); err == nil {
				if err := godotenv.Overload(); err != nil {
					slog.Warn("load .env", "error", err)
				}
			}
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")

	root.AddCommand(
		newServeCmd(&configPath),
		newExtractCmd(),
		newEnvCheckCmd(&configPath),
	)
	return root
}

// loadConfig reads the optional file, then the environment.
func loadConfig(path string) (*assistant.Config, error) {
	cfg := &assistant.Config{}
	if path != "" {
		var err error
		if cfg, err = assistant.LoadConfigFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// --- serve ---

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			logger, err := observability.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stdout)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *assistant.Config, logger *slog.Logger) error {
	answerer, err := answer.New(cfg.LLM, logger)
	if err != nil {
		return err
	}

	store, err := openSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ratings, err := openRatingSink(cfg)
	if err != nil {
		return err
	}
	defer ratings.Close()

	metrics := observability.NewMetrics()
	svc, err := assistant.New(cfg, store, answerer, ratings, logger, assistant.WithMetrics(metrics))
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           svc.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("docqa.listen",
			"addr", srv.Addr,
			"model", answerer.Model(),
			"session_backend", cfg.Session.Backend,
			"rating_sink", cfg.Ratings.Sink,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("docqa.shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openSessionStore(ctx context.Context, cfg *assistant.Config) (session.Store, error) {
	switch cfg.Session.Backend {
	case "redis":
		return session.NewRedis(ctx, cfg.Session.Redis)
	default:
		return session.NewMemory(), nil
	}
}

func openRatingSink(cfg *assistant.Config) (feedback.Sink, error) {
	switch cfg.Ratings.Sink {
	case "sqlite":
		db, err := dbopen.Open(cfg.Ratings.Path, dbopen.WithMkdirAll())
		if err != nil {
			return nil, err
		}
		sink, err := feedback.NewSQLiteSink(db)
		if err != nil {
			db.Close()
			return nil, err
		}
		return sink, nil
	default:
		return feedback.NewJSONLSink(cfg.Ratings.Path), nil
	}
}

// --- extract ---

func newExtractCmd() *cobra.Command {
	var maxChars int
	cmd := &cobra.Command{
		Use:   "extract <file>...",
		Short: "Extract and normalize documents, printing JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return extract(cmd.Context(), cmd.OutOrStdout(), args, maxChars)
		},
	}
	cmd.Flags().IntVar(&maxChars, "max-chars", docpipe.DefaultMaxChars, "bound on normalized text per document")
	return cmd
}

func extract(ctx context.Context, w io.Writer, paths []string, maxChars int) error {
	pipe := docpipe.New(docpipe.Config{MaxChars: maxChars})
	docs := make([]*docpipe.ParsedDocument, 0, len(paths))
	for _, p := range paths {
		doc, err := pipe.ExtractFile(ctx, p, filepath.Base(p))
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		docs = append(docs, doc)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(docs)
}

// --- env-check ---

func newEnvCheckCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "env-check",
		Short: "Print provider settings with the API key masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]string{
				"OPENAI_API_KEY": assistant.Mask(cfg.LLM.APIKey),
				"OPENAI_SERVER":  cfg.LLM.BaseURL,
				"OPENAI_MODEL":   cfg.LLM.Model,
			})
		},
	}
}
