package chain

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	clierr "github.com/ggonzalez94/solw/internal/errors"
)

func TestWaitForCommitmentReachesTarget(t *testing.T) {
	var calls int32
	err := waitForCommitment(context.Background(), time.Second, 5*time.Millisecond, rpc.CommitmentConfirmed, func(ctx context.Context) (SignatureStatus, error) {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			return SignatureStatus{}, nil
		case 2:
			return SignatureStatus{Found: true, Status: rpc.ConfirmationStatusProcessed}, nil
		default:
			return SignatureStatus{Found: true, Status: rpc.ConfirmationStatusConfirmed}, nil
		}
	})
	if err != nil {
		t.Fatalf("expected confirmation, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 polls, got %d", got)
	}
}

func TestWaitForCommitmentFinalizedSatisfiesConfirmed(t *testing.T) {
	err := waitForCommitment(context.Background(), time.Second, 5*time.Millisecond, rpc.CommitmentConfirmed, func(ctx context.Context) (SignatureStatus, error) {
		return SignatureStatus{Found: true, Status: rpc.ConfirmationStatusFinalized}, nil
	})
	if err != nil {
		t.Fatalf("expected finalized to satisfy confirmed, got %v", err)
	}
}

func TestWaitForCommitmentOnChainFailure(t *testing.T) {
	err := waitForCommitment(context.Background(), time.Second, 5*time.Millisecond, rpc.CommitmentConfirmed, func(ctx context.Context) (SignatureStatus, error) {
		return SignatureStatus{Found: true, Err: map[string]any{"InstructionError": []any{0, "Custom"}}, Status: rpc.ConfirmationStatusProcessed}, nil
	})
	if !clierr.HasCode(err, clierr.CodeTransactionFailed) {
		t.Fatalf("expected transaction failed, got %v", err)
	}
}

func TestWaitForCommitmentTimeout(t *testing.T) {
	err := waitForCommitment(context.Background(), 30*time.Millisecond, 5*time.Millisecond, rpc.CommitmentConfirmed, func(ctx context.Context) (SignatureStatus, error) {
		return SignatureStatus{}, errors.New("node lagging")
	})
	if !clierr.HasCode(err, clierr.CodeConfirmationTimeout) {
		t.Fatalf("expected confirmation timeout, got %v", err)
	}
	if cErr, _ := clierr.As(err); cErr.Cause == nil || cErr.Cause.Error() != "node lagging" {
		t.Fatalf("expected last poll error as cause, got %v", err)
	}
}

func TestWaitForCommitmentInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	err := waitForCommitment(ctx, time.Second, 5*time.Millisecond, rpc.CommitmentConfirmed, func(context.Context) (SignatureStatus, error) {
		if atomic.AddInt32(&calls, 1) == 2 {
			cancel()
		}
		return SignatureStatus{}, nil
	})
	if !clierr.HasCode(err, clierr.CodeInterrupted) {
		t.Fatalf("expected interrupted, got %v", err)
	}
}

func TestResolveRPCURL(t *testing.T) {
	got, err := ResolveRPCURL("")
	if err != nil || got != rpc.MainNetBeta_RPC {
		t.Fatalf("expected mainnet default, got %q err=%v", got, err)
	}
	got, err = ResolveRPCURL("devnet")
	if err != nil || got != rpc.DevNet_RPC {
		t.Fatalf("expected devnet url, got %q err=%v", got, err)
	}
	got, err = ResolveRPCURL("https://rpc.example.com")
	if err != nil || got != "https://rpc.example.com" {
		t.Fatalf("expected passthrough url, got %q err=%v", got, err)
	}
	if _, err := ResolveRPCURL("moonnet"); err == nil {
		t.Fatal("expected unknown cluster error")
	}
}

func TestParseCommitment(t *testing.T) {
	for input, want := range map[string]rpc.CommitmentType{
		"":          rpc.CommitmentConfirmed,
		"processed": rpc.CommitmentProcessed,
		"Finalized": rpc.CommitmentFinalized,
	} {
		got, err := ParseCommitment(input)
		if err != nil || got != want {
			t.Fatalf("ParseCommitment(%q) = %q, %v", input, got, err)
		}
	}
	if _, err := ParseCommitment("recent"); err == nil {
		t.Fatal("expected invalid commitment error")
	}
}
