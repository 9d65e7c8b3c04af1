package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/web3guy0/lobster/internal/chainlink"
	"github.com/web3guy0/lobster/internal/wallet"
)

func walletCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "BSC wallet balance and placeholder mining",
	}
	cmd.AddCommand(walletBalanceCmd(a), walletMineCmd(a))
	return cmd
}

func (a *app) tokenAddress() (common.Address, error) {
	if a.cfg.AGCTokenAddress == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(a.cfg.AGCTokenAddress) {
		return common.Address{}, fmt.Errorf("invalid AGC_TOKEN_ADDRESS %q", a.cfg.AGCTokenAddress)
	}
	return common.HexToAddress(a.cfg.AGCTokenAddress), nil
}

func walletBalanceCmd(a *app) *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show BNB and token balances of the mining wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			var owner common.Address
			switch {
			case address != "":
				if !common.IsHexAddress(address) {
					return fmt.Errorf("invalid address %q", address)
				}
				owner = common.HexToAddress(address)
			case a.cfg.WalletPrivateKey != "":
				key, err := wallet.ParseKey(a.cfg.WalletPrivateKey)
				if err != nil {
					return err
				}
				owner = crypto.PubkeyToAddress(key.PublicKey)
			default:
				return fmt.Errorf("pass --address or set WALLET_PRIVATE_KEY")
			}
			token, err := a.tokenAddress()
			if err != nil {
				return err
			}

			client, err := wallet.Dial(cmd.Context(), a.cfg.BSCRPCURL)
			if err != nil {
				return err
			}
			defer client.Close()

			status, err := wallet.New(client).Status(cmd.Context(), owner, token, a.cfg.MinBNBThreshold)
			if err != nil {
				return err
			}
			feed := chainlink.NewFeed(client, common.HexToAddress(chainlink.BNBUSDFeedAddress))
			if round, err := feed.Latest(cmd.Context()); err != nil {
				log.Warn().Err(err).Msg("BNB/USD price unavailable")
			} else {
				status.PriceUSD = round.Price
			}
			printReport(status.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "wallet to inspect (default: derived from WALLET_PRIVATE_KEY)")
	return cmd
}

func walletMineCmd(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "mine",
		Short: "Submit a zero-value self transaction every interval until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.RequireWallet(); err != nil {
				return err
			}
			key, err := wallet.ParseKey(a.cfg.WalletPrivateKey)
			if err != nil {
				return err
			}
			token, err := a.tokenAddress()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("dry-run") {
				dryRun = a.cfg.DryRun
			}

			client, err := wallet.Dial(cmd.Context(), a.cfg.BSCRPCURL)
			if err != nil {
				return err
			}
			defer client.Close()

			miner := wallet.NewMiner(client, key, wallet.MinerConfig{
				Threshold:      a.cfg.MinBNBThreshold,
				Floor:          a.cfg.MinBNBFloor,
				GasPriceGwei:   a.cfg.GasPriceGwei,
				Interval:       a.cfg.MiningInterval,
				LowBalanceWait: a.cfg.LowBalanceWait,
				DryRun:         dryRun,
				Token:          token,
			}, a.metrics)
			return miner.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", true, "sign transactions without sending them (default from DRY_RUN)")
	return cmd
}
