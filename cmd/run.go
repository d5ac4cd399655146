package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"license-agent/core/loader"
	"license-agent/core/logger"
	"license-agent/core/middleware/auth"
	"license-agent/core/middleware/rayid"
	"license-agent/core/scheduler"
	"license-agent/feature/bookings"
	"license-agent/feature/status"

	"github.com/coder/quartz"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "license-agent/docs/swagger"
)

// @title License Agent API
// @version 1.0
// @description Local API of the license agent: job hook bookings, status and health.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent",
	Long: `Starts the reconcile scheduler and the local API used by the job hooks.
Every tick checks the backend, reports a heartbeat and runs one reconcile cycle.`,
	RunE: runAgent,
}

func init() {
	RootCmd.AddCommand(runCmd)
}

func runAgent(cmd *cobra.Command, args []string) error {
	cfg, logg, err := loadConfig(true)
	if err != nil {
		return err
	}
	defer logg.Sync()
	zap.ReplaceGlobals(logg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newAgent(ctx, cfg, logg)
	if err != nil {
		return err
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// RayID first so that every log line of a request carries it.
	app.Use(rayid.New())
	app.Use(func(c *fiber.Ctx) error {
		l := logger.WithRayID(logg, c)
		l.Debug("Request started",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
		)
		err := c.Next()
		if err != nil {
			l.Error("Request error", zap.Error(err))
		}
		return err
	})

	app.Get("/swagger/*", swagger.HandlerDefault)
	app.Get("/metrics", a.metrics.Handler())

	app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey, Skip: []string{"/health"}}))

	mgr := loader.NewManager()
	mgr.Register(bookings.NewFeature(a.ledger, cfg.Agent.ClusterClientID, logg))
	mgr.Register(status.NewFeature(a.engine, a.ledger, a.backend, 3*cfg.Agent.Interval(), quartz.NewReal()))
	if err := mgr.LoadAll(app); err != nil {
		return fmt.Errorf("failed to load features: %w", err)
	}

	sched := scheduler.New(cfg.Agent.Interval(), logg)
	sched.Add("health", true, scheduler.HealthTask(a.backend))
	sched.Add("heartbeat", false, scheduler.HeartbeatTask(a.backend, cfg.Agent.ClusterClientID, cfg.Agent.Interval(), quartz.NewReal()))
	sched.Add("reconcile", false, func(ctx context.Context) error {
		_, err := a.engine.Reconcile(ctx)
		return err
	})

	listenErr := make(chan error, 1)
	go func() {
		logg.Info("Starting local API", zap.String("addr", cfg.Server.Addr()))
		listenErr <- app.Listen(cfg.Server.Addr())
	}()

	schedDone := make(chan error, 1)
	go func() {
		schedDone <- sched.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		logg.Info("Shutting down agent...")
	case err := <-listenErr:
		stop()
		<-schedDone
		return fmt.Errorf("local API failed: %w", err)
	}

	_ = app.Shutdown()
	return <-schedDone
}
