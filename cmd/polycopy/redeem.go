package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/danielrs/polycopy/config"
	"github.com/danielrs/polycopy/internal/adapters/onchain"
	"github.com/danielrs/polycopy/internal/adapters/polymarket"
	"github.com/danielrs/polycopy/internal/application/portfolio"
)

// runRedeem redime todas las posiciones de mercados resueltos y sale.
func runRedeem(ctx context.Context, cfg *config.Config, client *polymarket.Client) {
	privateKey := config.PrivateKey()
	wallet := config.WalletAddress()
	if privateKey == "" || wallet == "" {
		slog.Error("redeem mode requires POLY_PRIVATE_KEY and POLY_WALLET_ADDRESS")
		os.Exit(1)
	}

	redeemClient, err := onchain.NewRedeemClient(cfg.API.RPCURL, privateKey)
	if err != nil {
		slog.Error("failed to create redeem client", "err", err)
		os.Exit(1)
	}

	account := polymarket.NewAccountData(client, wallet)
	service := portfolio.NewRedeemService(account, redeemClient)

	redeemed, pnl, err := service.RedeemAll(ctx)
	if err != nil {
		slog.Error("redeem failed", "err", err)
		os.Exit(1)
	}
	slog.Info("redeem complete",
		"positions_redeemed", redeemed,
		"total_pnl", fmt.Sprintf("%+.2f$", pnl),
	)
}
