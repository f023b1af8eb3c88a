package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/danielrs/polycopy/config"
	"github.com/danielrs/polycopy/internal/adapters/etherscan"
	"github.com/danielrs/polycopy/internal/adapters/polymarket"
	"github.com/danielrs/polycopy/internal/adapters/storage"
	"github.com/danielrs/polycopy/internal/application/copier"
	"github.com/danielrs/polycopy/internal/ports"
)

// runCopy arranca el copy engine, en vivo o en dry-run.
func runCopy(ctx context.Context, cfg *config.Config, client *polymarket.Client, store *storage.SQLiteStore, dryRun, once bool) {
	if cfg.Copier.TargetWallet == "" {
		slog.Error("no target wallet configured — set copier.target_wallet or TARGET_WALLET")
		os.Exit(1)
	}

	feed := polymarket.NewActivityFeed(client, cfg.Copier.TargetWallet)

	var executor ports.OrderExecutor
	var balances ports.BalanceProvider

	privateKey := config.PrivateKey()
	if privateKey != "" {
		authClient, err := polymarket.NewAuthClient(cfg.API.CLOBBase, cfg.API.DataBase, privateKey)
		if err != nil {
			slog.Error("failed to create auth client", "err", err)
			os.Exit(1)
		}
		if err := authClient.EnsureCreds(ctx); err != nil {
			slog.Error("failed to derive API credentials — check POLY_PRIVATE_KEY", "err", err)
			os.Exit(1)
		}
		slog.Info("authenticated with Polymarket CLOB", "address", authClient.Address())

		trading := polymarket.NewTradingClient(authClient)
		executor = trading
		balances = trading
	} else {
		if !dryRun {
			slog.Error("live copy mode requires POLY_PRIVATE_KEY")
			os.Exit(1)
		}
		// Dry-run sin key: balance on-chain vía Etherscan.
		wallet := config.WalletAddress()
		apiKey := config.EtherscanAPIKey()
		if wallet == "" || apiKey == "" {
			slog.Error("dry-run without POLY_PRIVATE_KEY needs POLY_WALLET_ADDRESS and ETHERSCAN_API_KEY")
			os.Exit(1)
		}
		balances = etherscan.NewClient(cfg.API.EtherscanBase, apiKey, wallet)
	}

	if !dryRun {
		fmt.Printf("\n⚠️  LIVE COPY MODE — REAL MONEY WILL BE SPENT\n")
		fmt.Printf("   Target: %s | Max per order: %.0f%% of balance | Poll: %s\n",
			cfg.Copier.TargetWallet, cfg.Copier.MaxFraction*100, cfg.PollInterval())
		fmt.Printf("   Press Ctrl+C within 5 seconds to abort...\n\n")

		abortTimer := time.NewTimer(5 * time.Second)
		select {
		case <-abortTimer.C:
		case <-ctx.Done():
			slog.Info("live copy aborted by user")
			return
		}
	}

	engine := copier.New(feed, balances, executor, store, store, copier.Config{
		PollInterval: cfg.PollInterval(),
		Sizing:       cfg.Sizing(),
		DryRun:       dryRun,
	})

	if once {
		if _, err := engine.RunOnce(ctx); err != nil {
			slog.Error("copy cycle failed", "err", err)
			os.Exit(1)
		}
		return
	}

	if err := engine.Run(ctx); err != nil {
		slog.Error("copier exited with error", "err", err)
		os.Exit(1)
	}
}

// runClose cierra todas las posiciones abiertas con órdenes agresivas.
func runClose(ctx context.Context, cfg *config.Config, client *polymarket.Client, store *storage.SQLiteStore) {
	privateKey := config.PrivateKey()
	if privateKey == "" {
		slog.Error("close mode requires POLY_PRIVATE_KEY")
		os.Exit(1)
	}

	authClient, err := polymarket.NewAuthClient(cfg.API.CLOBBase, cfg.API.DataBase, privateKey)
	if err != nil {
		slog.Error("failed to create auth client", "err", err)
		os.Exit(1)
	}
	if err := authClient.EnsureCreds(ctx); err != nil {
		slog.Error("failed to derive API credentials — check POLY_PRIVATE_KEY", "err", err)
		os.Exit(1)
	}
	trading := polymarket.NewTradingClient(authClient)

	var fills ports.TradeProvider = store
	if wallet := config.WalletAddress(); wallet != "" {
		fills = polymarket.NewAccountData(client, wallet)
	}

	closer := copier.NewCloser(fills, trading, store)
	closed, err := closer.CloseAll(ctx)
	if err != nil {
		slog.Error("close failed", "err", err)
		os.Exit(1)
	}
	slog.Info("close complete", "positions_closed", closed)
}
