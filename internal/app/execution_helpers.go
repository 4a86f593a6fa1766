package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/ggonzalez94/solw/internal/chain"
	clierr "github.com/ggonzalez94/solw/internal/errors"
	"github.com/ggonzalez94/solw/internal/execution"
	"github.com/ggonzalez94/solw/internal/execution/signer"
	"github.com/ggonzalez94/solw/internal/id"
	"go.uber.org/zap"
)

func (s *runtimeState) chainRPC() (chain.RPC, error) {
	if s.rpc != nil {
		return s.rpc, nil
	}
	if s.runner.rpc != nil {
		s.rpc = s.runner.rpc
		return s.rpc, nil
	}
	endpoint, err := chain.ResolveRPCURL(s.settings.RPCURL)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUsage, "resolve rpc url", err)
	}
	commitment, err := chain.ParseCommitment(s.settings.Commitment)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUsage, "parse commitment", err)
	}
	s.logger().Debug("rpc client", zap.String("endpoint", endpoint), zap.String("commitment", string(commitment)))
	s.rpc = chain.NewClient(chain.Config{
		Endpoint:       endpoint,
		Commitment:     commitment,
		PollInterval:   s.settings.PollInterval,
		ConfirmTimeout: s.settings.ConfirmTimeout,
		RequestTimeout: s.settings.Timeout,
		SkipPreflight:  s.settings.SkipPreflight,
	})
	return s.rpc, nil
}

// localSigner resolves the signing key from --private-key, --key-file, the
// environment and the default key path, in that order.
func (s *runtimeState) localSigner() (signer.Signer, string, error) {
	if s.runner.signer != nil {
		return s.runner.signer, "injected", nil
	}
	local, err := signer.NewLocalSignerFromInputs(signer.KeySourceAuto, s.settings.PrivateKey, s.settings.PrivateKeyFile)
	if err != nil {
		return nil, "", err
	}
	return local, local.Origin(), nil
}

// ownerAddress is --address when given, otherwise the local key.
func (s *runtimeState) ownerAddress(address string) (solana.PublicKey, error) {
	if strings.TrimSpace(address) != "" {
		return id.ParseAddress(address)
	}
	local, _, err := s.localSigner()
	if err != nil {
		return solana.PublicKey{}, err
	}
	return local.PublicKey(), nil
}

// clusterName labels the configured endpoint for output and action records.
func clusterName(rpcURL string) string {
	norm := strings.ToLower(strings.TrimSpace(rpcURL))
	if norm == "" {
		return chain.DefaultCluster
	}
	if _, ok := chain.DefaultRPCURL(norm); ok {
		if norm == "mainnet" {
			return chain.DefaultCluster
		}
		return norm
	}
	for _, cluster := range []string{"devnet", "testnet"} {
		if strings.Contains(norm, cluster) {
			return cluster
		}
	}
	if strings.Contains(norm, "mainnet") {
		return chain.DefaultCluster
	}
	return "custom"
}

// submitContext cancels a signing flow on interrupt. It has no deadline;
// RPC calls and confirmation carry their own.
func (s *runtimeState) submitContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func (s *runtimeState) newAction(intent execution.Intent, owner solana.PublicKey, constraints execution.Constraints) execution.Action {
	action := execution.NewAction(execution.NewActionID(), intent, execution.ChainID(clusterName(s.settings.RPCURL)), constraints)
	action.Owner = owner.String()
	return action
}

func (s *runtimeState) saveAction(action *execution.Action) error {
	if err := s.ensureActionStore(); err != nil {
		return err
	}
	if err := s.actionStore.Save(*action); err != nil {
		return clierr.Wrap(clierr.CodeInternal, "persist action", err)
	}
	return nil
}

// finishAction records the final result of a flow and persists it. The
// flow's error, if any, is returned unchanged. A store failure after a
// successful flow becomes a warning so the signature is still printed.
func (s *runtimeState) finishAction(action *execution.Action, states []string, signature solana.Signature, flowErr error) error {
	if signature != (solana.Signature{}) {
		action.Signature = signature.String()
	}
	for _, st := range states {
		action.RecordState(st)
	}
	if flowErr != nil {
		action.Fail(flowErr)
	}
	log := s.logger().With(zap.String("action_id", action.ActionID), zap.String("status", string(action.Status)))
	if err := s.saveAction(action); err != nil {
		log.Error("persist action failed", zap.Error(err))
		if flowErr != nil {
			return flowErr
		}
		action.Warnings = append(action.Warnings, "action history was not saved: "+err.Error())
		return nil
	}
	if flowErr != nil {
		log.Info("action failed", zap.Error(flowErr))
		s.captureCommandDiagnostics([]string{fmt.Sprintf("action %s recorded with status %s", action.ActionID, action.Status)}, s.lastProviders, false)
		return flowErr
	}
	log.Info("action completed", zap.String("signature", action.Signature))
	return nil
}
