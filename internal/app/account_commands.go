package app

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/ggonzalez94/solw/internal/account"
	"github.com/ggonzalez94/solw/internal/id"
	"github.com/ggonzalez94/solw/internal/model"
	"github.com/spf13/cobra"
)

func (s *runtimeState) newBalanceCommand() *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Native SOL and wrapped SOL balances",
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, err := s.ownerAddress(address)
			if err != nil {
				return err
			}
			rpc, err := s.chainRPC()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), s.settings.Timeout)
			defer cancel()

			start := time.Now()
			data, err := s.readBalance(ctx, account.NewInspector(rpc), owner)
			statuses := []model.ProviderStatus{{Name: "rpc", Status: statusFromErr(err), LatencyMS: time.Since(start).Milliseconds()}}
			s.captureCommandDiagnostics(nil, statuses, false)
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), data, nil, cacheMetaBypass(), statuses, false)
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "Wallet address (defaults to the configured signer)")
	return cmd
}

func (s *runtimeState) readBalance(ctx context.Context, inspector *account.Inspector, owner solana.PublicKey) (model.Balance, error) {
	native, err := inspector.NativeBalance(ctx, owner)
	if err != nil {
		return model.Balance{}, err
	}
	wrappedAddr, err := account.DeriveTokenAddress(owner, solana.MustPublicKeyFromBase58(id.WrappedSOLMint))
	if err != nil {
		return model.Balance{}, err
	}
	exists, err := inspector.AccountExists(ctx, wrappedAddr)
	if err != nil {
		return model.Balance{}, err
	}
	wrapped := id.Lamports(0)
	if exists {
		wrapped, err = inspector.TokenBalance(ctx, wrappedAddr)
		if err != nil {
			return model.Balance{}, err
		}
		wrapped.Decimals = id.SOLDecimals
	}
	return model.Balance{
		Owner:          owner.String(),
		Cluster:        clusterName(s.settings.RPCURL),
		Native:         native.Info(),
		WrappedAccount: wrappedAddr.String(),
		WrappedExists:  exists,
		Wrapped:        wrapped.Info(),
		FetchedAt:      s.runner.now().UTC().Format(time.RFC3339),
	}, nil
}

func (s *runtimeState) newPortfolioCommand() *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Native SOL plus every SPL token account the wallet owns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, err := s.ownerAddress(address)
			if err != nil {
				return err
			}
			rpc, err := s.chainRPC()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), s.settings.Timeout)
			defer cancel()

			start := time.Now()
			data, err := account.NewInspector(rpc).Portfolio(ctx, owner)
			statuses := []model.ProviderStatus{{Name: "rpc", Status: statusFromErr(err), LatencyMS: time.Since(start).Milliseconds()}}
			s.captureCommandDiagnostics(nil, statuses, false)
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), data, nil, cacheMetaBypass(), statuses, false)
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "Wallet address (defaults to the configured signer)")
	return cmd
}
