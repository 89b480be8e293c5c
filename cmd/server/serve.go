package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"growth-charts/internal/cache"
	"growth-charts/internal/config"
	"growth-charts/internal/generator"
	"growth-charts/internal/handler"
	"growth-charts/internal/logging"
	"growth-charts/internal/workspace"
)

const shutdownTimeout = 10 * time.Second

var (
	flagListen        string
	flagPage          bool
	flagGenerateOnGet bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chart HTTP server",
	Long: `Starts an HTTP server with one chart endpoint. A POST with a "cedula" form
field runs the chart program for that identifier; the result is returned as
an inline frame. GET runs it with an empty identifier unless
--generate-on-get=false.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&flagListen, "listen", "", "Address to listen on (default :8080)")
	f.BoolVar(&flagPage, "page", false, "Wrap results in an HTML page with the cédula form")
	f.BoolVar(&flagGenerateOnGet, "generate-on-get", true, "Run the chart program on GET with an empty identifier")
}

// app holds everything the server needs, built from configuration
type app struct {
	cfg        *config.Config
	logger     zerolog.Logger
	workspaces *workspace.Manager
	generator  *generator.Generator
	cache      *cache.ArtifactCache
}

func newApp(cfg *config.Config) (*app, error) {
	logger, err := logging.New(logging.Options{
		Level:      cfg.Logging.Level,
		TimeLayout: cfg.Logging.TimeLayout,
		Colored:    cfg.Logging.Colored,
		JSON:       cfg.Logging.JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	workspaces, err := workspace.NewManager(cfg.Workspace.BaseDir)
	if err != nil {
		return nil, err
	}

	gen, err := generator.New(cfg.GeneratorSettings(), nil, workspaces, logger)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:        cfg,
		logger:     logger,
		workspaces: workspaces,
		generator:  gen,
	}

	if ttl := cfg.Cache.TTL.Std(); ttl > 0 {
		c, err := cache.New(ttl)
		if err != nil {
			return nil, err
		}
		a.cache = c
	}
	return a, nil
}

func (a *app) close() {
	if a.cache != nil {
		a.cache.Close()
	}
}

// routes builds the HTTP handler tree
func (a *app) routes() (http.Handler, error) {
	var pattern *regexp.Regexp
	if p := a.cfg.Render.IdentifierPattern; p != "" {
		var err error
		if pattern, err = regexp.Compile(p); err != nil {
			return nil, err
		}
	}

	// A nil *ArtifactCache must not become a non-nil interface
	var artifactCache handler.ArtifactCache
	if a.cache != nil {
		artifactCache = a.cache
	}

	chart := handler.NewChartHandler(a.generator, artifactCache, handler.Options{
		IframeHeight:      a.cfg.Render.IframeHeight,
		ProcessErrorText:  a.cfg.Render.ProcessErrorText,
		ArtifactErrorText: a.cfg.Render.ArtifactErrorText,
		TimeoutErrorText:  a.cfg.Render.TimeoutErrorText,
		IdentifierPattern: pattern,
		GenerateOnGet:     a.cfg.Server.GenerateOnGet,
		Page:              a.cfg.Server.Page,
		Action:            a.cfg.Server.Path,
	}, a.logger)

	mux := http.NewServeMux()
	path := a.cfg.Server.Path
	if path == "/" {
		path = "/{$}"
	}
	mux.Handle(path, chart)
	mux.HandleFunc("GET /healthz", handler.Health)

	return handler.RequestLogger(a.logger, mux), nil
}

// janitor removes abandoned workspaces until ctx is done
func (a *app) janitor(ctx context.Context) {
	interval := a.cfg.Workspace.SweepInterval.Std()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := a.workspaces.Sweep(a.cfg.Workspace.MaxAge.Std())
			if err != nil {
				a.logger.Warn().Err(err).Msg("workspace sweep incomplete")
			}
			if removed > 0 {
				a.logger.Info().Int("removed", removed).Msg("swept stale workspaces")
			}
		}
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	h, err := a.routes()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info().
			Str("listen", cfg.Server.Listen).
			Str("path", cfg.Server.Path).
			Str("mode", cfg.Generator.Mode).
			Str("script", cfg.Generator.Script).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info().Msg("server shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		a.janitor(gctx)
		return nil
	})

	return g.Wait()
}
