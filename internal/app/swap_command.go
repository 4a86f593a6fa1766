package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	clierr "github.com/ggonzalez94/solw/internal/errors"
	"github.com/ggonzalez94/solw/internal/execution"
	"github.com/ggonzalez94/solw/internal/id"
	"github.com/ggonzalez94/solw/internal/model"
	"github.com/ggonzalez94/solw/internal/schema"
	"github.com/ggonzalez94/solw/internal/swap"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const swapQuoteTTL = 15 * time.Second

type swapArgs struct {
	provider   string
	from       string
	to         string
	amount     string
	amountBase string
}

type swapRequest struct {
	provider string
	quotes   swap.QuoteService
	in       id.Token
	out      id.Token
	req      swap.QuoteRequest
}

func (s *runtimeState) newSwapCommand() *cobra.Command {
	root := &cobra.Command{Use: "swap", Short: "Swap quote and execution commands"}
	root.AddCommand(s.newSwapQuoteCommand())
	root.AddCommand(s.newSwapRunCommand())
	return root
}

func bindSwapFlags(cmd *cobra.Command, args *swapArgs) {
	cmd.Flags().StringVar(&args.provider, "provider", "", "Quote provider (default jupiter)")
	cmd.Flags().StringVar(&args.from, "from", "", "Input token symbol or mint")
	cmd.Flags().StringVar(&args.to, "to", "", "Output token symbol or mint")
	cmd.Flags().StringVar(&args.amount, "amount", "", "Input amount in token units, e.g. 1.5")
	cmd.Flags().StringVar(&args.amountBase, "amount-base", "", "Input amount in base units")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	cmd.MarkFlagsMutuallyExclusive("amount", "amount-base")
	cmd.MarkFlagsOneRequired("amount", "amount-base")
}

// parseSwapArgs resolves both tokens and the input amount. A decimal amount
// needs known decimals, so unknown mints take --amount-base.
func (s *runtimeState) parseSwapArgs(args swapArgs) (swapRequest, error) {
	provider, err := s.quoteProviders.Select(args.provider)
	if err != nil {
		return swapRequest{}, err
	}
	var quotes swap.QuoteService = provider
	if s.runner.quotes != nil {
		quotes = s.runner.quotes
	}
	in, err := id.ParseToken(args.from)
	if err != nil {
		return swapRequest{}, err
	}
	out, err := id.ParseToken(args.to)
	if err != nil {
		return swapRequest{}, err
	}
	if !in.Known && strings.TrimSpace(args.amount) != "" {
		return swapRequest{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("decimals of %s are unknown; pass --amount-base", in.Mint))
	}
	base, _, err := id.NormalizeAmount(args.amountBase, args.amount, in.Decimals)
	if err != nil {
		return swapRequest{}, err
	}
	return swapRequest{
		provider: provider.Info().Name,
		quotes:   quotes,
		in:       in,
		out:      out,
		req: swap.QuoteRequest{
			InputMint:   in.PublicKey(),
			OutputMint:  out.PublicKey(),
			Amount:      base,
			SlippageBps: s.settings.SlippageBps,
		},
	}, nil
}

func (s *runtimeState) newSwapQuoteCommand() *cobra.Command {
	var args swapArgs
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Get a swap quote",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sr, err := s.parseSwapArgs(args)
			if err != nil {
				return err
			}
			path := trimRootPath(cmd.CommandPath())
			key := cacheKey(path, map[string]any{
				"provider": sr.provider,
				"from":     sr.req.InputMint.String(),
				"to":       sr.req.OutputMint.String(),
				"amount":   sr.req.Amount,
				"slippage": sr.req.SlippageBps,
			})
			orchestrator := swap.New(nil, sr.quotes, swap.Options{})
			return s.runCachedCommand(path, key, swapQuoteTTL, func(ctx context.Context) (any, []model.ProviderStatus, []string, bool, error) {
				start := time.Now()
				quote, err := orchestrator.Quote(ctx, sr.req)
				status := []model.ProviderStatus{{Name: sr.provider, Status: statusFromErr(err), LatencyMS: time.Since(start).Milliseconds()}}
				if err != nil {
					return nil, status, nil, false, err
				}
				return quote.Summary(sr.provider, sr.in, sr.out, s.runner.now()), status, quoteWarnings(quote), false, nil
			})
		},
	}
	bindSwapFlags(cmd, &args)
	return cmd
}

func (s *runtimeState) newSwapRunCommand() *cobra.Command {
	var args swapArgs
	cmd := &cobra.Command{
		Use:         "run",
		Short:       "Quote, sign and submit a swap, then wait for confirmation",
		Annotations: map[string]string{schema.AnnotationMutates: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			sr, err := s.parseSwapArgs(args)
			if err != nil {
				return err
			}
			local, _, err := s.localSigner()
			if err != nil {
				return err
			}
			rpc, err := s.chainRPC()
			if err != nil {
				return err
			}
			ctx, cancel := s.submitContext()
			defer cancel()

			action := s.newAction(execution.IntentSwap, local.PublicKey(), execution.Constraints{SlippageBps: sr.req.SlippageBps})
			action.Provider = sr.provider
			action.InputMint = sr.in.Mint
			action.OutputMint = sr.out.Mint
			action.InputAmount = id.Amount{Base: sr.req.Amount}.BaseString()
			if err := s.saveAction(&action); err != nil {
				return err
			}

			log := s.logger().With(zap.String("action_id", action.ActionID), zap.String("intent", string(execution.IntentSwap)))
			orchestrator := swap.New(rpc, sr.quotes, swap.Options{
				OnTransition: func(st swap.State) { log.Debug("transition", zap.String("state", string(st))) },
			})

			start := time.Now()
			quote, err := orchestrator.Quote(ctx, sr.req)
			statuses := []model.ProviderStatus{{Name: sr.provider, Status: statusFromErr(err), LatencyMS: time.Since(start).Milliseconds()}}
			s.captureCommandDiagnostics(nil, statuses, false)
			if err != nil {
				return s.finishAction(&action, []string{string(swap.StateFailed)}, solana.Signature{}, err)
			}
			summary := quote.Summary(sr.provider, sr.in, sr.out, s.runner.now())
			action.OutputAmount = summary.EstimatedOut.AmountBaseUnits
			action.Metadata = map[string]any{
				"minimum_out":      summary.MinimumOut.AmountBaseUnits,
				"price_impact_pct": summary.PriceImpactPct,
				"route":            summary.Route,
			}
			action.AddStep(execution.StepTypeSwap, fmt.Sprintf("swap via %s", summary.Route), sr.out.Mint)

			outcome, flowErr := orchestrator.BuildAndSubmit(ctx, quote, local)
			states := make([]string, 0, len(outcome.States))
			for _, st := range outcome.States {
				states = append(states, string(st))
			}
			if err := s.finishAction(&action, states, outcome.Signature, flowErr); err != nil {
				return err
			}
			s.invalidateQuoteCache()
			warnings := append(quoteWarnings(quote), action.Warnings...)
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), action, warnings, cacheMetaBypass(), statuses, false)
		},
	}
	bindSwapFlags(cmd, &args)
	return cmd
}

// invalidateQuoteCache drops cached quotes once balances have moved.
func (s *runtimeState) invalidateQuoteCache() {
	if !s.settings.CacheEnabled {
		return
	}
	if err := s.ensureCache(); err != nil {
		s.logger().Debug("open cache for invalidation", zap.Error(err))
		return
	}
	n, err := s.cache.DeletePrefix(cacheKeyPrefix("swap quote"))
	if err != nil {
		s.logger().Debug("invalidate quote cache", zap.Error(err))
		return
	}
	s.logger().Debug("invalidated quote cache", zap.Int64("entries", n))
}

func quoteWarnings(q swap.Quote) []string {
	if q.PriceImpactPct >= 1 {
		return []string{fmt.Sprintf("price impact is %.2f%%", q.PriceImpactPct)}
	}
	return nil
}
