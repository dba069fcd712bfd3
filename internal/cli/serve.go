package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/api"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/cli/runner"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/config"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/health"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/logging"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/middleware"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/rpc"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/server"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/service"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/tracing"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and RPC API (with scheduled backups)",
	Long: `Start the HTTP control plane and the Connect RPC service.

In production, or with schedule.auto_start, the emergency, full and
integrity timers start with the server. Otherwise start them through
POST /api/backup/scheduler or with --scheduler.`,
	Example: `  # Start server on the configured address (default :8080)
  clinicguard serve

  # Start server on a custom port with timers running
  clinicguard serve --addr :9090 --scheduler`,
	Args: cobra.NoArgs,
	RunE: runners.Config().Use(runner.RequireServices()).Wrap(runServe),
}

func init() {
	f := serveCmd.Flags()
	f.StringP("addr", "a", "", "Listen address (default: server.listen)")
	f.Bool("scheduler", false, "Start the backup timers regardless of environment")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx *runner.CommandContext, cmd *cobra.Command, args []string) error {
	cfg := ctx.Config
	flags := runner.Flags(cmd)
	if addr := flags.String("addr"); addr != "" {
		cfg.Server.Listen = addr
	}
	startScheduler := flags.Bool("scheduler")
	if err := flags.Err(); err != nil {
		return err
	}

	shutdownTracing, err := tracing.Init(tracing.Config{
		Exporter:    cfg.Tracing.Exporter,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.App.Environment,
	})
	if err != nil {
		return err
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			logging.Warn("Failed to flush traces", logging.Err(err))
		}
	}()

	svc, err := ctx.Services()
	if err != nil {
		return err
	}

	srv := api.NewServer(svc, cfg.Server.Listen, serverOptions(cfg, svc))
	printServerInfo(cfg)

	if startScheduler || cfg.App.Production() || cfg.Schedule.AutoStart {
		svc.Scheduler.Start()
		logging.Info("Backup scheduler started")
	} else {
		logging.Info("Backup scheduler idle - start it with POST /api/backup/scheduler {\"action\":\"start\"}")
	}

	gs := server.NewGracefulServer(srv.HTTPServer(), &server.GracefulServerOptions{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		BeforeStop:      svc.Scheduler.Stop,
		ShutdownHook:    srv.Close,
	})
	logging.Info("Press Ctrl+C to stop")
	return gs.ListenAndServe()
}

func serverOptions(cfg *config.Config, svc *service.Services) *api.ServerOptions {
	prefix, handler := rpc.NewServer(svc, &rpc.Options{APIKey: cfg.Server.APIKey}).Handler()
	opts := &api.ServerOptions{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		CORSOrigins:  cfg.Server.CORSOrigins,
		Mounts:       []api.Mount{{Path: prefix, Handler: handler}},
	}
	if svc.Liveness != nil {
		opts.Health = health.ProberFunc(svc.Liveness.Check)
	}
	if cfg.Server.RateLimit > 0 {
		opts.RateLimit = &middleware.RateLimitConfig{
			RequestsPerSecond: cfg.Server.RateLimit,
			BurstSize:         cfg.Server.RateBurst,
		}
	}
	return opts
}

func printServerInfo(cfg *config.Config) {
	logging.Info("clinicguard server starting",
		logging.String("version", Version),
		logging.String("environment", cfg.App.Environment),
		logging.String("addr", cfg.Server.Listen),
		logging.Int("locations", len(cfg.Locations)))

	logging.Info("Endpoints available:")
	logging.Info("  GET  /health                    - Liveness of the record store")
	logging.Info("  POST /api/backup                - Run a manual backup")
	logging.Info("  GET  /api/backup                - List stored backups")
	logging.Info("  GET  /api/backup/scheduler      - Scheduler status")
	logging.Info("  POST /api/backup/scheduler      - Start, stop or force")
	logging.Info("  POST /api/recovery/validate     - Validate a backup file")
	logging.Info("  POST /api/recovery/restore      - Restore from a backup file")
	logging.Info("  POST /api/integrity/audit       - Run an integrity audit")
	logging.Info("  POST " + rpc.ServiceName + "/*  - Connect RPC")
}
