package chain

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go/rpc"
)

const DefaultCluster = "mainnet-beta"

var defaultRPCByCluster = map[string]string{
	"mainnet-beta": rpc.MainNetBeta_RPC,
	"mainnet":      rpc.MainNetBeta_RPC,
	"devnet":       rpc.DevNet_RPC,
	"testnet":      rpc.TestNet_RPC,
	"localnet":     rpc.LocalNet_RPC,
}

func DefaultRPCURL(cluster string) (string, bool) {
	v, ok := defaultRPCByCluster[strings.ToLower(strings.TrimSpace(cluster))]
	return v, ok
}

// ResolveRPCURL accepts a URL, a cluster name, or empty for mainnet-beta.
func ResolveRPCURL(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		input = DefaultCluster
	}
	if v, ok := DefaultRPCURL(input); ok {
		return v, nil
	}
	lower := strings.ToLower(input)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return input, nil
	}
	return "", fmt.Errorf("unknown cluster %q; provide an http(s) rpc url or one of mainnet-beta|devnet|testnet|localnet", input)
}

// ParseCommitment validates a commitment level name.
func ParseCommitment(input string) (rpc.CommitmentType, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", "confirmed":
		return rpc.CommitmentConfirmed, nil
	case "processed":
		return rpc.CommitmentProcessed, nil
	case "finalized":
		return rpc.CommitmentFinalized, nil
	default:
		return "", fmt.Errorf("commitment must be processed, confirmed or finalized")
	}
}
