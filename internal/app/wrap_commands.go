package app

import (
	"context"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/ggonzalez94/solw/internal/execution"
	"github.com/ggonzalez94/solw/internal/id"
	"github.com/ggonzalez94/solw/internal/schema"
	"github.com/ggonzalez94/solw/internal/wrap"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (s *runtimeState) newWrapCommand() *cobra.Command {
	var amountSOL, lamportsArg string
	cmd := &cobra.Command{
		Use:         "wrap",
		Short:       "Wrap native SOL into the wallet's wrapped SOL account",
		Annotations: map[string]string{schema.AnnotationMutates: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			lamports, _, err := id.NormalizeAmount(lamportsArg, amountSOL, id.SOLDecimals)
			if err != nil {
				return err
			}
			return s.runWrapFlow(cmd, execution.IntentWrap, execution.Constraints{}, func(ctx context.Context, o *wrap.Orchestrator) (wrap.Outcome, error) {
				return o.Wrap(ctx, lamports)
			})
		},
	}
	cmd.Flags().StringVar(&amountSOL, "amount", "", "Amount in SOL, e.g. 1.5")
	cmd.Flags().StringVar(&lamportsArg, "lamports", "", "Amount in lamports")
	cmd.MarkFlagsMutuallyExclusive("amount", "lamports")
	cmd.MarkFlagsOneRequired("amount", "lamports")
	return cmd
}

func (s *runtimeState) newUnwrapCommand() *cobra.Command {
	var amountSOL, lamportsArg string
	var closeFull bool
	cmd := &cobra.Command{
		Use:   "unwrap",
		Short: "Close the wrapped SOL account and return its balance as native SOL",
		Long: "Unwrapping closes the wrapped SOL account, so the whole balance is returned. " +
			"An amount below the balance is rejected unless --close-full accepts closing everything.",
		Annotations: map[string]string{schema.AnnotationMutates: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var amount *uint64
			if strings.TrimSpace(amountSOL) != "" || strings.TrimSpace(lamportsArg) != "" {
				v, _, err := id.NormalizeAmount(lamportsArg, amountSOL, id.SOLDecimals)
				if err != nil {
					return err
				}
				amount = &v
			}
			constraints := execution.Constraints{AllowFullClose: closeFull}
			return s.runWrapFlow(cmd, execution.IntentUnwrap, constraints, func(ctx context.Context, o *wrap.Orchestrator) (wrap.Outcome, error) {
				return o.Unwrap(ctx, amount, wrap.UnwrapOptions{AllowFullClose: closeFull})
			})
		},
	}
	cmd.Flags().StringVar(&amountSOL, "amount", "", "Amount in SOL (defaults to the whole balance)")
	cmd.Flags().StringVar(&lamportsArg, "lamports", "", "Amount in lamports")
	cmd.Flags().BoolVar(&closeFull, "close-full", false, "Allow a partial amount by closing the whole account")
	cmd.MarkFlagsMutuallyExclusive("amount", "lamports")
	return cmd
}

// runWrapFlow resolves the signer, runs one orchestrator call and records
// it as an action.
func (s *runtimeState) runWrapFlow(cmd *cobra.Command, intent execution.Intent, constraints execution.Constraints, call func(context.Context, *wrap.Orchestrator) (wrap.Outcome, error)) error {
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

	action := s.newAction(intent, local.PublicKey(), constraints)
	action.InputMint = id.WrappedSOLMint
	action.OutputMint = id.WrappedSOLMint
	if err := s.saveAction(&action); err != nil {
		return err
	}

	log := s.logger().With(zap.String("action_id", action.ActionID), zap.String("intent", string(intent)))
	orchestrator := wrap.New(rpc, local, wrap.Options{
		OnTransition: func(st wrap.State) { log.Debug("transition", zap.String("state", string(st))) },
	})
	outcome, flowErr := call(ctx, orchestrator)

	plan := outcome.Plan
	action.InputAmount = id.Lamports(plan.Lamports).BaseString()
	action.OutputAmount = action.InputAmount
	if plan.WrappedAccount != (solana.PublicKey{}) {
		action.Metadata = map[string]any{"wrapped_account": plan.WrappedAccount.String()}
	}
	for _, step := range plan.Steps {
		action.AddStep(execution.StepType(step), stepDescription(step), plan.WrappedAccount.String())
	}
	action.Warnings = append(action.Warnings, outcome.Warnings...)
	states := make([]string, 0, len(outcome.States))
	for _, st := range outcome.States {
		states = append(states, string(st))
	}
	if err := s.finishAction(&action, states, outcome.Signature, flowErr); err != nil {
		return err
	}
	return s.emitSuccess(trimRootPath(cmd.CommandPath()), action, action.Warnings, cacheMetaBypass(), nil, false)
}

func stepDescription(step wrap.Step) string {
	switch step {
	case wrap.StepCreateAccount:
		return "create associated wrapped SOL account"
	case wrap.StepTransfer:
		return "transfer lamports into the wrapped account"
	case wrap.StepSyncNative:
		return "sync wrapped token balance"
	case wrap.StepCloseAccount:
		return "close wrapped account to the owner"
	default:
		return string(step)
	}
}
