package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spacedunk/spacedunk/internal/api"
	"github.com/spacedunk/spacedunk/internal/config"
	"github.com/spacedunk/spacedunk/internal/factory"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the peer daemon",
		Long: `Run starts the long-lived peer: it joins the gossip network,
serves the local HTTP API, and keeps world state persisted across restarts.
All settings come from SPACEDUNK_* environment variables.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPeer()
		},
	}
}

func runPeer() error {
	peerCfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(peerCfg.LogLevel),
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := factory.New(ctx, peerCfg, logger)
	if err != nil {
		logger.Error("failed to start peer", slog.String("error", err.Error()))
		return err
	}
	defer func() { _ = app.Close() }()

	serverCfg := api.DefaultServerConfig()
	serverCfg.Addr = peerCfg.HTTPAddr
	server := api.NewServer(app.Handler, serverCfg, logger)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	schedErr := make(chan error, 1)
	go func() {
		schedErr <- app.Scheduler.Run(ctx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	logger.Info("peer started",
		slog.String("peer", string(app.Identity.PeerID())),
		slog.String("api", server.Addr()))

	select {
	case err := <-schedErr:
		if err != nil {
			logger.Error("scheduler failed", slog.String("error", err.Error()))
			_ = server.Shutdown(context.Background())
			return err
		}
	case err := <-serverErr:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			cancel()
			<-schedErr
			return err
		}
	case <-ctx.Done():
	}

	// The scheduler takes its final persistence pass on the way out.
	if err := server.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
	}
	<-schedErr

	logger.Info("peer stopped")
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
