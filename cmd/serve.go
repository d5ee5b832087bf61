package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/binserve/internal/config"
	"github.com/conneroisu/binserve/internal/livereload"
	"github.com/conneroisu/binserve/internal/logging"
	"github.com/conneroisu/binserve/internal/pages"
	"github.com/conneroisu/binserve/internal/reload"
	"github.com/conneroisu/binserve/internal/routes"
	"github.com/conneroisu/binserve/internal/server"
	"github.com/conneroisu/binserve/internal/site"
	"github.com/conneroisu/binserve/internal/version"
)

var serveOpts config.Overrides

func addServeFlags(c *cobra.Command) {
	c.Flags().StringVarP(&serveOpts.Host, "host", "H", "", "host and port to bind to, overrides server.host")
	c.Flags().StringVarP(&serveOpts.TLSKey, "key", "k", "", "TLS private key file, overrides server.tls.key")
	c.Flags().StringVarP(&serveOpts.TLSCert, "cert", "c", "", "TLS certificate file, overrides server.tls.cert")
}

func newServeCmd() *cobra.Command {
	c := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"s"},
		Short:   "Build the route table and start serving",
		Long: `Build the route table from the configuration and start serving it.

Examples:
  binserve serve                            # Serve using binserve.json
  binserve serve -H 0.0.0.0:8080            # Override the listen address
  binserve serve -k key.pem -c cert.pem     # Override the TLS key pair
  binserve serve --config site.yaml         # Use another configuration file`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	addServeFlags(c)
	return c
}

// app is a built site ready to serve.
type app struct {
	cfg      *config.Config
	site     *site.Site
	table    *routes.Table
	logger   logging.Logger
	closeLog func()
	loader   reload.Loader
}

// prepare loads the configuration, builds the logger and fills the route
// table. A build failure here is fatal; later failures during hot reload
// keep the previous table.
func prepare(ctx context.Context, path string, overrides config.Overrides, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(path, overrides)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	logger, closeLog, err := newLogger(cfg, logOut)
	if err != nil {
		return nil, err
	}

	fallback, err := pages.Render(ctx, pages.NotFound(version.ServerName()))
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("rendering default not-found page: %w", err)
	}

	s, err := site.New(cfg, nil, fallback)
	if err != nil {
		closeLog()
		return nil, err
	}

	table := routes.NewTable()
	op := logging.StartOperation(logger, "build_routes")
	if _, err := s.Build(table); err != nil {
		op.EndWithError(ctx, err)
		closeLog()
		return nil, fmt.Errorf("building routes: %w", err)
	}
	op.End(ctx, "routes", table.Len())

	return &app{
		cfg:      cfg,
		site:     s,
		table:    table,
		logger:   logger,
		closeLog: closeLog,
		loader: func() (*site.Site, error) {
			next, err := config.Load(path, overrides)
			if err != nil {
				return nil, err
			}
			return site.New(next, nil, fallback)
		},
	}, nil
}

func newLogger(cfg *config.Config, out io.Writer) (logging.Logger, func(), error) {
	name := cfg.Toggles.LogLevel
	if logLevel != "" {
		name = logLevel
	}
	level, err := logging.ParseLevel(name)
	if err != nil {
		return nil, nil, err
	}

	lc := logging.DefaultConfig()
	lc.Level = level
	lc.Format = cfg.Toggles.LogFormat
	lc.Output = out

	if cfg.Toggles.LogFile == "" {
		return logging.NewLogger(lc), func() {}, nil
	}

	fl, err := logging.NewFileLogger(lc, cfg.Toggles.LogFile)
	if err != nil {
		return nil, nil, err
	}
	return fl, func() { _ = fl.Close() }, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	path := configPath()
	if path == config.DefaultFile && config.StarterNeeded(".") {
		created, err := config.WriteStarter(".")
		if err != nil {
			return fmt.Errorf("writing starter site: %w", err)
		}
		printInfo(out, "Created a starter site (%d files)", len(created))
	}

	started := time.Now()
	a, err := prepare(ctx, path, serveOpts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.closeLog()
	printBuildSummary(out, a.table.Len(), time.Since(started))

	var hub *livereload.Hub
	if a.cfg.Toggles.EnableLiveReload {
		hub = livereload.NewHub(a.logger)
		go hub.Run(ctx)
	}

	reloader := reload.New(a.table, a.site, a.loader, reload.WithLogger(a.logger))
	if hub != nil {
		reloader.OnReconcile(func(o reload.Outcome) {
			hub.Notify(o.Full, o.Keys)
		})
	}
	go func() {
		if err := reloader.Run(ctx); err != nil {
			a.logger.Error(ctx, err, "hot reload stopped")
		}
	}()

	srv := server.New(server.Options{
		Config: a.cfg,
		Table:  a.table,
		Logger: a.logger,
		Hub:    hub,
	})

	printSuccess(out, "Your server is up and running at %s", serverURL(a.cfg))
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func serverURL(cfg *config.Config) string {
	if cfg.Server.TLS.Enable {
		return "https://" + cfg.Server.TLS.Host
	}
	return "http://" + cfg.Server.Host
}
