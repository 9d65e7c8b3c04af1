// Package chainlink reads Chainlink price feed aggregators over JSON-RPC.
package chainlink

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// BNB/USD aggregator on BSC mainnet
const BNBUSDFeedAddress = "0x0567F2323251f0Aab15c8dFb1967E4e8A7D42aeE"

const aggregatorABI = `[
	{"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"latestRoundData","outputs":[
		{"name":"roundId","type":"uint80"},
		{"name":"answer","type":"int256"},
		{"name":"startedAt","type":"uint256"},
		{"name":"updatedAt","type":"uint256"},
		{"name":"answeredInRound","type":"uint80"}
	],"stateMutability":"view","type":"function"}
]`

var aggregator = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(aggregatorABI))
	if err != nil {
		panic(err)
	}
	return parsed
}()

// Caller is the read-only contract call of ethclient.Client
type Caller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Round is one answer of a feed
type Round struct {
	RoundID   *big.Int
	Price     decimal.Decimal
	UpdatedAt time.Time
}

// Stale reports whether the answer is older than maxAge
func (r Round) Stale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(r.UpdatedAt) > maxAge
}

// Feed reads one aggregator. Decimals are fetched once.
type Feed struct {
	caller   Caller
	address  common.Address
	decimals int32
}

func NewFeed(caller Caller, address common.Address) *Feed {
	return &Feed{caller: caller, address: address, decimals: -1}
}

// Latest returns the most recent round
func (f *Feed) Latest(ctx context.Context) (Round, error) {
	if f.decimals < 0 {
		out, err := f.call(ctx, "decimals")
		if err != nil {
			return Round{}, err
		}
		d, ok := out[0].(uint8)
		if !ok {
			return Round{}, fmt.Errorf("decimals: unexpected result %T", out[0])
		}
		f.decimals = int32(d)
	}

	out, err := f.call(ctx, "latestRoundData")
	if err != nil {
		return Round{}, err
	}
	if len(out) < 4 {
		return Round{}, fmt.Errorf("latestRoundData: short result")
	}
	roundID, _ := out[0].(*big.Int)
	answer, ok := out[1].(*big.Int)
	if !ok || answer.Sign() <= 0 {
		return Round{}, fmt.Errorf("latestRoundData on %s: invalid answer", f.address.Hex())
	}
	updated, _ := out[3].(*big.Int)

	r := Round{
		RoundID: roundID,
		Price:   decimal.NewFromBigInt(answer, -f.decimals),
	}
	if updated != nil {
		r.UpdatedAt = time.Unix(updated.Int64(), 0)
	}
	log.Debug().Str("feed", f.address.Hex()).Str("price", r.Price.String()).Msg("⛓️ Chainlink round")
	return r, nil
}

func (f *Feed) call(ctx context.Context, method string) ([]any, error) {
	input, err := aggregator.Pack(method)
	if err != nil {
		return nil, err
	}
	res, err := f.caller.CallContract(ctx, ethereum.CallMsg{To: &f.address, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s on %s: %w", method, f.address.Hex(), err)
	}
	out, err := aggregator.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s on %s: empty result", method, f.address.Hex())
	}
	return out, nil
}
