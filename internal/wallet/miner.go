package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/lobster/internal/metrics"
)

// ErrBalanceTooLow stops the loop when gas can no longer be paid
var ErrBalanceTooLow = errors.New("native balance below floor")

const (
	transferGas    = 21000
	receiptTimeout = 120 * time.Second
	receiptPoll    = 3 * time.Second
)

// MinerConfig drives the mining loop
type MinerConfig struct {
	Threshold      decimal.Decimal // below this, wait for a top-up
	Floor          decimal.Decimal // below this, stop
	GasPriceGwei   decimal.Decimal
	Interval       time.Duration
	LowBalanceWait time.Duration
	DryRun         bool
	Token          common.Address // optional, logged after each success
}

// Outcome of one submission
type Outcome struct {
	Hash    common.Hash
	Nonce   uint64
	Sent    bool
	Success bool
}

type Miner struct {
	wallet  *Wallet
	backend Backend
	key     *ecdsa.PrivateKey
	from    common.Address
	cfg     MinerConfig
	metrics *metrics.Metrics

	receiptTimeout time.Duration
	receiptPoll    time.Duration
}

// ParseKey reads a hex private key with or without the 0x prefix
func ParseKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

// NewMiner creates a miner for key. m may be nil.
func NewMiner(backend Backend, key *ecdsa.PrivateKey, cfg MinerConfig, m *metrics.Metrics) *Miner {
	return &Miner{
		wallet:         New(backend),
		backend:        backend,
		key:            key,
		from:           crypto.PubkeyToAddress(key.PublicKey),
		cfg:            cfg,
		metrics:        m,
		receiptTimeout: receiptTimeout,
		receiptPoll:    receiptPoll,
	}
}

// Address is the mining wallet
func (m *Miner) Address() common.Address {
	return m.from
}

// Submit sends one zero-value transfer to self. In dry run the transaction
// is signed but not broadcast.
func (m *Miner) Submit(ctx context.Context) (Outcome, error) {
	chainID, err := m.backend.ChainID(ctx)
	if err != nil {
		m.count("error")
		return Outcome{}, fmt.Errorf("chain id: %w", err)
	}
	nonce, err := m.backend.PendingNonceAt(ctx, m.from)
	if err != nil {
		m.count("error")
		return Outcome{}, fmt.Errorf("nonce: %w", err)
	}

	to := m.from
	tx, err := types.SignNewTx(m.key, types.LatestSignerForChainID(chainID), &types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    big.NewInt(0),
		Gas:      transferGas,
		GasPrice: m.cfg.GasPriceGwei.Shift(9).BigInt(),
	})
	if err != nil {
		m.count("error")
		return Outcome{}, fmt.Errorf("sign: %w", err)
	}
	out := Outcome{Hash: tx.Hash(), Nonce: nonce}

	if m.cfg.DryRun {
		log.Info().Str("tx", out.Hash.Hex()).Uint64("nonce", nonce).Msg("🧪 [DRY RUN] Mining transaction signed, not sent")
		m.count("dry_run")
		return out, nil
	}

	if err := m.backend.SendTransaction(ctx, tx); err != nil {
		m.count("error")
		return out, fmt.Errorf("send %s: %w", out.Hash.Hex(), err)
	}
	out.Sent = true
	log.Info().Str("tx", out.Hash.Hex()).Uint64("nonce", nonce).Msg("⛏️ Mining transaction sent")

	receipt, err := m.waitReceipt(ctx, out.Hash)
	if err != nil {
		m.count("error")
		return out, err
	}
	out.Success = receipt.Status == types.ReceiptStatusSuccessful
	if out.Success {
		log.Info().Str("tx", out.Hash.Hex()).Msg("✅ Transaction successful")
		m.count("success")
	} else {
		log.Error().Str("tx", out.Hash.Hex()).Msg("❌ Transaction failed")
		m.count("failed")
	}
	return out, nil
}

func (m *Miner) waitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, m.receiptTimeout)
	defer cancel()

	ticker := time.NewTicker(m.receiptPoll)
	defer ticker.Stop()
	for {
		receipt, err := m.backend.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			log.Debug().Err(err).Str("tx", hash.Hex()).Msg("Receipt lookup failed")
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for receipt %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// Run mines until ctx is cancelled or the balance drops below the floor.
// Submission errors are logged and retried after the interval.
func (m *Miner) Run(ctx context.Context) error {
	log.Info().
		Str("wallet", m.from.Hex()).
		Str("threshold", m.cfg.Threshold.String()).
		Str("floor", m.cfg.Floor.String()).
		Bool("dry_run", m.cfg.DryRun).
		Msg("⛏️ Mining loop started")

	for {
		wait := m.cfg.Interval
		balance, err := m.wallet.NativeBalance(ctx, m.from)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			log.Error().Err(err).Msg("Balance check failed")
		case balance.LessThan(m.cfg.Floor):
			log.Error().Str("balance", balance.StringFixed(6)).Msg("BNB balance too low for any transactions. Stopping.")
			return fmt.Errorf("%w: %s < %s", ErrBalanceTooLow, balance.StringFixed(6), m.cfg.Floor)
		case balance.LessThan(m.cfg.Threshold):
			m.observeBalance(balance)
			log.Warn().
				Str("balance", balance.StringFixed(6)).
				Str("threshold", m.cfg.Threshold.String()).
				Dur("wait", m.cfg.LowBalanceWait).
				Msg("⚠️ BNB balance below threshold, waiting for recharge")
			wait = m.cfg.LowBalanceWait
		default:
			m.observeBalance(balance)
			if out, err := m.Submit(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Error().Err(err).Msg("Error in mining")
			} else if out.Success {
				m.logTokenBalance(ctx)
			}
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("Mining stopped")
			return nil
		case <-time.After(wait):
		}
	}
}

func (m *Miner) logTokenBalance(ctx context.Context) {
	if m.cfg.Token == (common.Address{}) {
		return
	}
	tb, err := m.wallet.TokenBalance(ctx, m.cfg.Token, m.from)
	if err != nil {
		log.Warn().Err(err).Msg("Could not determine token balance")
		return
	}
	log.Info().Str("symbol", tb.Symbol).Str("balance", tb.Amount.StringFixed(6)).Msg("🪙 Token balance")
}

func (m *Miner) observeBalance(balance decimal.Decimal) {
	if m.metrics != nil {
		m.metrics.WalletBalance.Set(balance.InexactFloat64())
	}
}

func (m *Miner) count(outcome string) {
	if m.metrics != nil {
		m.metrics.MiningTxs.WithLabelValues(outcome).Inc()
	}
}
