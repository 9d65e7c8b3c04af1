// Package wallet reads BSC balances and runs the placeholder mining loop.
package wallet

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

const nativeDecimals = 18

// Backend is the part of ethclient.Client the wallet needs
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Dial connects to a JSON-RPC endpoint
func Dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	return client, nil
}

const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function"}
]`

var erc20 = mustParseABI(erc20ABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

// TokenBalance is an ERC-20 balance scaled by the token's decimals
type TokenBalance struct {
	Token    common.Address
	Symbol   string
	Decimals uint8
	Raw      *big.Int
	Amount   decimal.Decimal
}

type Wallet struct {
	backend Backend
}

func New(backend Backend) *Wallet {
	return &Wallet{backend: backend}
}

// NativeBalance returns the BNB balance of addr
func (w *Wallet) NativeBalance(ctx context.Context, addr common.Address) (decimal.Decimal, error) {
	wei, err := w.backend.BalanceAt(ctx, addr, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance of %s: %w", addr.Hex(), err)
	}
	return decimal.NewFromBigInt(wei, -nativeDecimals), nil
}

// TokenBalance reads balanceOf and decimals from an ERC-20 contract.
// The symbol is best effort.
func (w *Wallet) TokenBalance(ctx context.Context, token, owner common.Address) (TokenBalance, error) {
	tb := TokenBalance{Token: token}

	out, err := w.call(ctx, token, "balanceOf", owner)
	if err != nil {
		return tb, err
	}
	raw, ok := out[0].(*big.Int)
	if !ok {
		return tb, fmt.Errorf("balanceOf %s: unexpected result %T", token.Hex(), out[0])
	}

	out, err = w.call(ctx, token, "decimals")
	if err != nil {
		return tb, err
	}
	dec, ok := out[0].(uint8)
	if !ok {
		return tb, fmt.Errorf("decimals %s: unexpected result %T", token.Hex(), out[0])
	}

	if out, err := w.call(ctx, token, "symbol"); err == nil {
		tb.Symbol, _ = out[0].(string)
	}

	tb.Raw = raw
	tb.Decimals = dec
	tb.Amount = decimal.NewFromBigInt(raw, -int32(dec))
	return tb, nil
}

func (w *Wallet) call(ctx context.Context, contract common.Address, method string, args ...any) ([]any, error) {
	input, err := erc20.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	res, err := w.backend.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s on %s: %w", method, contract.Hex(), err)
	}
	out, err := erc20.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s on %s: empty result", method, contract.Hex())
	}
	return out, nil
}
