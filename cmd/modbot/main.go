package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"modbot/internal/analytics"
	"modbot/internal/bot"
	"modbot/internal/config"
	"modbot/internal/modules/audit"
	"modbot/internal/ratewindow"
	"modbot/internal/recovery"
	"modbot/internal/storage"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := cli.App{
		Name:   "modbot",
		Usage:  "Discord AutoMod and server recovery bot",
		Action: runBot,
	}
	app.Commands = []*cli.Command{
		{
			Name:   "run",
			Usage:  "connect to Discord and moderate",
			Action: runBot,
		},
		{
			Name:   "migrate",
			Usage:  "apply database migrations and exit",
			Action: runMigrate,
		},
		{
			Name:  "snapshot",
			Usage: "store a backup of a guild's roles and channels",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "guild", Usage: "guild id", Required: true},
			},
			Action: runSnapshot,
		},
		{
			Name:  "restore",
			Usage: "recreate missing roles and channels from the latest backup",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "guild", Usage: "guild id", Required: true},
				&cli.StringFlag{Name: "mode", Usage: "full or partial", Value: string(recovery.ModeFull)},
				&cli.BoolFlag{Name: "preview", Usage: "only count stored backup rows"},
				&cli.StringFlag{Name: "operator", Usage: "user id recorded as the operator", Value: recovery.CLIOperator},
			},
			Action: runRestore,
		},
		{
			Name:   "cleanup",
			Usage:  "delete backups and audit rows older than their retention periods",
			Action: runCleanup,
		},
	}
	app.RunAndExitOnError()
}

type deps struct {
	cfg    config.Config
	logger *zap.Logger
	store  *storage.Store
}

func setup() (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	store, err := storage.New(cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("storage init: %w", err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return &deps{cfg: cfg, logger: logger, store: store}, nil
}

func (r *deps) close() {
	r.store.Close()
	_ = r.logger.Sync()
}

// recoveryManager builds a Manager over a REST-only session.
func (r *deps) recoveryManager() (*recovery.Manager, error) {
	if err := r.cfg.RequireToken(); err != nil {
		return nil, err
	}
	session, err := bot.NewSession(r.cfg.DiscordToken)
	if err != nil {
		return nil, err
	}
	auditLogger := audit.NewLogger(r.store, r.logger)
	return recovery.NewManager(bot.NewGateway(session), r.store, r.store, auditLogger, r.logger, r.cfg.Recovery.RestoreRatePerSecond), nil
}

func newTracker(cfg config.Config) (ratewindow.Tracker, func(), error) {
	idleTTL := time.Duration(cfg.AutoMod.IdleTTLSeconds) * time.Second
	if cfg.AutoMod.RateWindowBackend == "redis" {
		if cfg.Redis.URL == "" {
			return nil, nil, errors.New("REDIS_URL is required for the redis rate window backend")
		}
		tracker, err := ratewindow.NewRedisTracker(cfg.Redis.URL, idleTTL)
		if err != nil {
			return nil, nil, err
		}
		return tracker, func() { _ = tracker.Close() }, nil
	}
	return ratewindow.NewMemoryTracker(idleTTL), func() {}, nil
}

func runBot(cctx *cli.Context) error {
	rt, err := setup()
	if err != nil {
		return err
	}
	defer rt.close()
	logger := rt.logger

	if err := rt.cfg.RequireToken(); err != nil {
		return err
	}

	tracker, closeTracker, err := newTracker(rt.cfg)
	if err != nil {
		return err
	}
	defer closeTracker()

	auditLogger := audit.NewLogger(rt.store, logger)
	botSvc, err := bot.New(rt.cfg, logger, rt.store, auditLogger, analytics.New(rt.store), tracker)
	if err != nil {
		return fmt.Errorf("bot init: %w", err)
	}
	if err := botSvc.Start(); err != nil {
		return fmt.Errorf("bot start: %w", err)
	}
	logger.Info("bot started", zap.String("rate_window_backend", rt.cfg.AutoMod.RateWindowBackend))

	var server *http.Server
	if rt.cfg.Health.Enabled {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			if err := rt.store.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("storage unavailable"))
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		mux.Handle("/metrics", promhttp.Handler())
		server = &http.Server{Addr: rt.cfg.Health.Addr, Handler: mux}
		go func() {
			logger.Info("health endpoint enabled", zap.String("addr", rt.cfg.Health.Addr))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("health server error", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown requested")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if server != nil {
		_ = server.Shutdown(ctx)
	}
	botSvc.Close(ctx)
	return nil
}

func runMigrate(cctx *cli.Context) error {
	rt, err := setup()
	if err != nil {
		return err
	}
	defer rt.close()
	rt.logger.Info("migrations applied", zap.String("driver", rt.cfg.Storage.Driver))
	return nil
}

func runSnapshot(cctx *cli.Context) error {
	rt, err := setup()
	if err != nil {
		return err
	}
	defer rt.close()

	manager, err := rt.recoveryManager()
	if err != nil {
		return err
	}
	res, err := manager.Snapshot(cctx.Context, cctx.String("guild"))
	if err != nil {
		return err
	}
	fmt.Printf("stored %d roles and %d channels\n", res.Roles, res.Channels)
	return nil
}

func runRestore(cctx *cli.Context) error {
	mode, ok := recovery.ParseMode(cctx.String("mode"))
	if !ok {
		return fmt.Errorf("unknown mode %q", cctx.String("mode"))
	}

	rt, err := setup()
	if err != nil {
		return err
	}
	defer rt.close()

	manager, err := rt.recoveryManager()
	if err != nil {
		return err
	}
	res := manager.Restore(cctx.Context, recovery.Request{
		GuildID:    cctx.String("guild"),
		Mode:       mode,
		Preview:    cctx.Bool("preview"),
		OperatorID: operatorID(cctx.String("operator")),
	})
	if cctx.Bool("preview") {
		fmt.Printf("%d role rows, %d channel rows\n", res.RoleBackups, res.ChannelBackups)
	} else {
		fmt.Printf("restored %d roles and %d channels\n", res.RolesRestored, res.ChannelsRestored)
	}
	for _, e := range res.Errors {
		fmt.Println("error:", e)
	}
	if !res.Success {
		return errors.New("restore failed")
	}
	return nil
}

func runCleanup(cctx *cli.Context) error {
	rt, err := setup()
	if err != nil {
		return err
	}
	defer rt.close()

	// Cleanup needs no platform access.
	manager := recovery.NewManager(nil, rt.store, rt.store, audit.NewLogger(rt.store, rt.logger), rt.logger, 0)
	removed, err := manager.Cleanup(cctx.Context, rt.cfg.Recovery.RetentionDays)
	if err != nil {
		return err
	}
	fmt.Printf("removed %d backup rows\n", removed)
	return rt.store.CleanupAuditLogs(cctx.Context, rt.cfg.AuditRetentionDays)
}

// operatorID maps the flag default to an empty id so the report shows the
// CLI label instead of a user mention.
func operatorID(flag string) string {
	if flag == recovery.CLIOperator {
		return ""
	}
	return flag
}
