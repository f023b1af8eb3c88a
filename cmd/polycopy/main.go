package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/danielrs/polycopy/config"
	"github.com/danielrs/polycopy/internal/adapters/notify"
	"github.com/danielrs/polycopy/internal/adapters/polymarket"
	"github.com/danielrs/polycopy/internal/adapters/storage"
	"github.com/danielrs/polycopy/internal/application/portfolio"
	"github.com/danielrs/polycopy/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one cycle and exit")
	copyMode := flag.Bool("copy", false, "run the copy engine (default: portfolio tracker)")
	closeAll := flag.Bool("close", false, "close all open positions and exit")
	redeem := flag.Bool("redeem", false, "redeem resolved positions and exit")
	dryRun := flag.Bool("dry-run", false, "copy mode: size and record orders without submitting")
	table := flag.Bool("table", false, "print full table (default: compact 1-line)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("polycopy starting",
		"config", *configPath,
		"target", cfg.Copier.TargetWallet,
		"copy", *copyMode,
		"dry_run", *dryRun,
		"once", *once,
	)

	client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.DataBase)

	store, err := storage.NewSQLiteStore(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch {
	case *redeem:
		runRedeem(ctx, cfg, client)
	case *closeAll:
		runClose(ctx, cfg, client, store)
	case *copyMode:
		runCopy(ctx, cfg, client, store, *dryRun, *once)
	default:
		runTracker(ctx, cfg, client, store, *table, *once)
	}

	slog.Info("polycopy stopped cleanly")
}

// runTracker arranca el portfolio tracker (el modo por defecto, solo lectura).
func runTracker(ctx context.Context, cfg *config.Config, client *polymarket.Client, store *storage.SQLiteStore, table, once bool) {
	notifier := notify.NewConsole(table)

	// Con POLY_WALLET_ADDRESS el ledger se alimenta del historial completo
	// de la cuenta en la Data API; sin ella, de los fills copiados en local.
	var fills ports.TradeProvider = store
	var account ports.PositionProvider
	if wallet := config.WalletAddress(); wallet != "" {
		accountData := polymarket.NewAccountData(client, wallet)
		fills = accountData
		account = accountData
	}

	engine := portfolio.New(fills, client, account, notifier, store, portfolio.Config{
		RefreshInterval: cfg.RefreshInterval(),
	})

	if once {
		if _, err := engine.RunOnce(ctx); err != nil {
			slog.Error("portfolio refresh failed", "err", err)
			os.Exit(1)
		}
		return
	}

	if err := engine.Run(ctx); err != nil {
		slog.Error("portfolio tracker exited with error", "err", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
