package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	clierr "github.com/ggonzalez94/solw/internal/errors"
)

// SignatureStatus is one poll result for a submitted signature.
type SignatureStatus struct {
	Found  bool
	Err    any
	Status rpc.ConfirmationStatusType
}

type statusFetcher func(ctx context.Context) (SignatureStatus, error)

var commitmentRank = map[string]int{
	string(rpc.ConfirmationStatusProcessed): 1,
	string(rpc.ConfirmationStatusConfirmed): 2,
	string(rpc.ConfirmationStatusFinalized): 3,
}

func reached(status rpc.ConfirmationStatusType, target rpc.CommitmentType) bool {
	return commitmentRank[string(status)] >= commitmentRank[string(target)] && commitmentRank[string(status)] > 0
}

// waitForCommitment polls fetch until the target commitment is reached.
// A deadline on the wait is a timeout; cancellation of parent is an
// interruption and the transaction's fate is unknown in both cases.
func waitForCommitment(parent context.Context, timeout, interval time.Duration, target rpc.CommitmentType, fetch statusFetcher) error {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	waitCtx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		st, err := fetch(waitCtx)
		switch {
		case err != nil:
			lastErr = err
		case st.Found && st.Err != nil:
			return clierr.New(clierr.CodeTransactionFailed, fmt.Sprintf("transaction failed on-chain: %v", st.Err))
		case st.Found && reached(st.Status, target):
			return nil
		}

		select {
		case <-parent.Done():
			return clierr.Wrap(clierr.CodeInterrupted, "confirmation interrupted; final transaction state is unknown", parent.Err())
		case <-waitCtx.Done():
			if parent.Err() != nil {
				return clierr.Wrap(clierr.CodeInterrupted, "confirmation interrupted; final transaction state is unknown", parent.Err())
			}
			cause := waitCtx.Err()
			if lastErr != nil {
				cause = lastErr
			}
			return clierr.Wrap(clierr.CodeConfirmationTimeout, "timed out waiting for confirmation", cause)
		case <-ticker.C:
		}
	}
}
