package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/YaganovValera/ohlcv-bridge/common/configloader"
	"github.com/YaganovValera/ohlcv-bridge/common/logger"
	"github.com/YaganovValera/ohlcv-bridge/internal/app"
	"github.com/YaganovValera/ohlcv-bridge/internal/config"
)

func main() {
	var (
		cfgFile     string
		printConfig bool
	)

	root := &cobra.Command{
		Use:           "ohlcv-bridge",
		Short:         "Binance kline stream → latest OHLCV over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cfgFile, printConfig)
		},
	}
	root.Flags().StringVar(&cfgFile, "config", "", "path to YAML config (optional; env and defaults otherwise)")
	root.Flags().BoolVar(&printConfig, "print-config", false, "print effective configuration and exit")

	// Контекст с отменой по сигналам
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ohlcv-bridge: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgFile string, printConfig bool) error {
	// 1. Конфиг
	cfg, v, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if printConfig {
		return configloader.PrintConfig(os.Stdout, cfg)
	}

	// 2. Логгер
	log, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		DevMode: cfg.Logging.DevMode,
		File:    cfg.Logging.File,
	})
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer log.Sync()

	// 3. Hot reload: на лету меняется только уровень логирования
	if cfgFile != "" {
		err := configloader.Watch(v, func(e fsnotify.Event) {
			next, err := config.Reload(v)
			if err != nil {
				log.Warn("config: reload rejected", zap.String("file", e.Name), zap.Error(err))
				return
			}
			if err := log.SetLevel(next.Logging.Level); err != nil {
				log.Warn("config: bad log level", zap.Error(err))
				return
			}
			log.Info("config: reloaded; only logging.level is applied without restart",
				zap.String("level", next.Logging.Level))
		})
		if err != nil {
			log.Warn("config: watch disabled", zap.Error(err))
		}
	}

	log.Info("starting service",
		zap.String("service.name", cfg.ServiceName),
		zap.String("service.version", cfg.ServiceVersion),
	)

	// 4. Запуск
	if err := app.Run(ctx, cfg, log); err != nil {
		log.Error("application exited with error", zap.Error(err))
		return err
	}
	log.Info("shutdown complete")
	return nil
}
