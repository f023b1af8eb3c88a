package onchain

// redeem.go — On-chain CTF redemption for resolved Polymarket markets.
//
// The CTF (Conditional Token Framework) redeemPositions() function converts
// winning outcome tokens of a resolved condition back into USDC.e:
//   100 winning tokens → $100 USDC.e
//
// The index set for a binary outcome is 1 << outcomeIndex. The Data API
// tells us which positions are redeemable; this client only signs and
// sends the transaction.

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

const (
	polygonChainID = int64(137)

	// USDC.e collateral on Polygon
	usdcEAddress = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"

	// CTF contract — holds conditional tokens (ERC1155)
	ctfAddress = "0x4D97DCd97eC945f40cF65F87097ACe5EA0476045"

	// Gas limit (conservative upper bound)
	redeemGasLimit = uint64(200_000)

	// Gas price update interval
	gasPriceUpdateInterval = 5 * time.Minute
)

var ctfABI abi.ABI

func init() {
	var err error
	ctfABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "redeemPositions",
			"type": "function",
			"inputs": [
				{"name": "collateralToken", "type": "address"},
				{"name": "parentCollectionId", "type": "bytes32"},
				{"name": "conditionId", "type": "bytes32"},
				{"name": "indexSets", "type": "uint256[]"}
			],
			"outputs": []
		}
	]`))
	if err != nil {
		panic("ctf abi parse: " + err.Error())
	}
}

// RedeemClient implements ports.Redeemer.
type RedeemClient struct {
	client     *ethclient.Client
	privateKey []byte
	address    common.Address

	mu           sync.RWMutex
	cachedGasWei *big.Int
	gasUpdatedAt time.Time
}

// NewRedeemClient creates a redeem executor connected to the given Polygon RPC.
// privateKeyHex is without 0x prefix.
func NewRedeemClient(rpcURL, privateKeyHex string) (*RedeemClient, error) {
	pkBytes, err := hex.DecodeString(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("redeem: decode private key: %w", err)
	}

	privKey, err := crypto.ToECDSA(pkBytes)
	if err != nil {
		return nil, fmt.Errorf("redeem: invalid private key: %w", err)
	}

	addr := crypto.PubkeyToAddress(privKey.PublicKey)

	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("redeem: dial rpc %s: %w", rpcURL, err)
	}

	return &RedeemClient{
		client:     client,
		privateKey: pkBytes,
		address:    addr,
	}, nil
}

// Address returns the signing wallet address.
func (rc *RedeemClient) Address() string {
	return rc.address.Hex()
}

// RedeemPosition redeems all winning tokens held for the given condition and
// outcome index, returning the transaction hash once the tx is confirmed.
func (rc *RedeemClient) RedeemPosition(ctx context.Context, conditionID string, outcomeIndex int) (string, error) {
	if outcomeIndex < 0 || outcomeIndex > 255 {
		return "", fmt.Errorf("redeem: invalid outcome index %d", outcomeIndex)
	}

	condBytes, err := hexToBytes32(conditionID)
	if err != nil {
		return "", fmt.Errorf("redeem: invalid conditionID %s: %w", conditionID, err)
	}

	indexSet := new(big.Int).Lsh(big.NewInt(1), uint(outcomeIndex))

	callData, err := ctfABI.Pack("redeemPositions",
		common.HexToAddress(usdcEAddress),
		[32]byte{},
		condBytes,
		[]*big.Int{indexSet},
	)
	if err != nil {
		return "", fmt.Errorf("redeem: pack: %w", err)
	}

	privKey, err := crypto.ToECDSA(rc.privateKey)
	if err != nil {
		return "", fmt.Errorf("redeem: private key: %w", err)
	}

	nonce, err := rc.client.PendingNonceAt(ctx, rc.address)
	if err != nil {
		return "", fmt.Errorf("redeem: nonce: %w", err)
	}

	gasPrice, err := rc.getGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("redeem: gas price: %w", err)
	}

	ctfAddr := common.HexToAddress(ctfAddress)

	gasEstimate, err := rc.client.EstimateGas(ctx, ethereum.CallMsg{
		From:     rc.address,
		To:       &ctfAddr,
		GasPrice: gasPrice,
		Data:     callData,
	})
	if err != nil {
		gasEstimate = redeemGasLimit
		slog.Warn("redeem: gas estimate failed, using default", "err", err, "limit", redeemGasLimit)
	}
	// Add 20% buffer
	gasEstimate = gasEstimate * 12 / 10

	tx := types.NewTransaction(
		nonce,
		ctfAddr,
		big.NewInt(0), // no value
		gasEstimate,
		gasPrice,
		callData,
	)

	chainID := big.NewInt(polygonChainID)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(chainID), privKey)
	if err != nil {
		return "", fmt.Errorf("redeem: sign tx: %w", err)
	}

	if err := rc.client.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("redeem: send tx: %w", err)
	}

	txHash := signedTx.Hash().Hex()
	slog.Info("redeem: transaction sent",
		"condition", shortHex(conditionID), "outcome_index", outcomeIndex, "tx", txHash)

	// Wait for receipt (up to 60s)
	receiptCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	receipt, err := rc.waitForReceipt(receiptCtx, signedTx.Hash())
	if err != nil {
		// TX sent but we couldn't confirm — it may still land
		slog.Warn("redeem: could not confirm receipt, tx may still succeed", "tx", txHash, "err", err)
		return txHash, nil
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return txHash, fmt.Errorf("redeem: tx reverted: %s", txHash)
	}

	slog.Info("redeem: confirmed", "condition", shortHex(conditionID), "tx", txHash, "gas_used", receipt.GasUsed)
	return txHash, nil
}

func (rc *RedeemClient) getGasPrice(ctx context.Context) (*big.Int, error) {
	rc.mu.RLock()
	cached := rc.cachedGasWei
	updatedAt := rc.gasUpdatedAt
	rc.mu.RUnlock()

	if cached != nil && time.Since(updatedAt) < gasPriceUpdateInterval {
		return cached, nil
	}

	price, err := rc.client.SuggestGasPrice(ctx)
	if err != nil {
		if cached != nil {
			return cached, nil
		}
		return big.NewInt(30_000_000_000), nil // 30 gwei fallback
	}

	// Add 10% buffer for faster inclusion
	buffered := new(big.Int).Mul(price, big.NewInt(11))
	buffered.Div(buffered, big.NewInt(10))
	price = buffered

	rc.mu.Lock()
	rc.cachedGasWei = price
	rc.gasUpdatedAt = time.Now()
	rc.mu.Unlock()

	return price, nil
}

func (rc *RedeemClient) waitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			receipt, err := rc.client.TransactionReceipt(ctx, txHash)
			if err != nil {
				continue // not yet mined
			}
			return receipt, nil
		}
	}
}

func hexToBytes32(s string) ([32]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	if len(s) != 64 {
		return [32]byte{}, fmt.Errorf("expected 64 hex chars, got %d", len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return [32]byte{}, err
	}
	var arr [32]byte
	copy(arr[:], b)
	return arr, nil
}

func shortHex(s string) string {
	if len(s) > 12 {
		return s[:12] + "..."
	}
	return s
}
