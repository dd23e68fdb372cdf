package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mark-engine/api/internal/config"
	"mark-engine/api/internal/handle"
	"mark-engine/api/internal/marking"
	"mark-engine/api/internal/marking/llm"
	"mark-engine/api/internal/marking/llm/gemini"
	"mark-engine/api/internal/marking/llm/gpt"
	"mark-engine/api/internal/store"
)

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("marking-api stopped", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development() {
		zc = zap.NewDevelopmentConfig()
	}
	if lvl, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zc.Build()
}

func run(cfg *config.Config, log *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	engines := &llm.Engines{
		Gemini: gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel),
		OpenAI: gpt.New(cfg.OpenAIAPIKey, cfg.OpenAIModel),
	}
	gen, err := engines.GetEngine(cfg.LLMName)
	if err != nil {
		return err
	}
	log.Info("model grader selected", zap.String("engine", gen.Name()), zap.String("model", gen.GetModel()))
	if cfg.PromptDir != "" {
		log.Info("prompt overrides enabled", zap.String("dir", cfg.PromptDir))
	}

	var (
		repo store.AttemptRepo
		db   *sql.DB
	)
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL is empty, attempts are kept in memory")
		repo = store.NewMemoryAttemptRepo()
	} else {
		db, err = openDB(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		log.Info("db connected", zap.String("dsn", safeDSNSummary(cfg.DatabaseURL)))

		pg := store.NewPGAttemptRepo(db)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = pg.Migrate(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		repo = pg
	}

	engine := marking.New(
		llm.NewGrader(gen, log.Named("model")),
		log.Named("marking"),
		marking.WithConcurrency(cfg.MarkConcurrency),
	)
	h := handle.New(engine, repo, log.Named("http"), cfg.PromptDir)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthz(db))
	h.Register(mux)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("marking-api listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func openDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(1 * time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}
	return db, nil
}

func healthz(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// safeDSNSummary drops credentials from a DSN for logging.
func safeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	return fmt.Sprintf("%s@%s%s", u.User.Username(), u.Host, u.Path)
}
