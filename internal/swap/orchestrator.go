package swap

import (
	"context"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/ggonzalez94/solw/internal/chain"
	clierr "github.com/ggonzalez94/solw/internal/errors"
	"github.com/ggonzalez94/solw/internal/execution/signer"
)

type State string

const (
	StateIdle      State = "idle"
	StateQuoted    State = "quoted"
	StateBuilt     State = "built"
	StateVerified  State = "verified"
	StateSubmitted State = "submitted"
	StateConfirmed State = "confirmed"
	StateFailed    State = "failed"
)

type Options struct {
	OnTransition func(State)
}

type Orchestrator struct {
	rpc    chain.RPC
	quotes QuoteService
	opts   Options
}

func New(rpc chain.RPC, quotes QuoteService, opts Options) *Orchestrator {
	return &Orchestrator{rpc: rpc, quotes: quotes, opts: opts}
}

// Outcome describes a submission attempt. Signature is set once the
// transaction was sent, even if confirmation then failed.
type Outcome struct {
	Signature solana.Signature
	FeePayer  solana.PublicKey
	States    []State
}

func (o *Orchestrator) transition(out *Outcome, s State) {
	out.States = append(out.States, s)
	if o.opts.OnTransition != nil {
		o.opts.OnTransition(s)
	}
}

// Quote asks the quote service for a route and validates the answer.
func (o *Orchestrator) Quote(ctx context.Context, req QuoteRequest) (Quote, error) {
	if req.Amount == 0 {
		return Quote{}, clierr.New(clierr.CodeUsage, "swap amount must be greater than zero")
	}
	if req.SlippageBps < 0 || req.SlippageBps > MaxSlippageBps {
		return Quote{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("slippage must be between 0 and %d bps", MaxSlippageBps))
	}
	if req.InputMint.Equals(req.OutputMint) {
		return Quote{}, clierr.New(clierr.CodeUsage, "input and output mints must differ")
	}
	raw, err := o.quotes.GetQuote(ctx, req)
	if err != nil {
		return Quote{}, clierr.Ensure(clierr.CodeUnavailable, "request swap quote", err)
	}
	return ParseQuote(req, raw)
}

// BuildAndSubmit fetches the transaction for quote, checks that the local
// key pays for it, signs and submits. Nothing is sent when the embedded fee
// payer is anyone else.
func (o *Orchestrator) BuildAndSubmit(ctx context.Context, quote Quote, s signer.Signer) (Outcome, error) {
	out := Outcome{}
	o.transition(&out, StateIdle)
	fail := func(err error) (Outcome, error) {
		o.transition(&out, StateFailed)
		return out, err
	}
	if len(quote.Raw) == 0 {
		return fail(clierr.New(clierr.CodeQuoteMismatch, "quote has no payload to build from"))
	}
	o.transition(&out, StateQuoted)

	payload, err := o.quotes.GetSwapTransaction(ctx, quote.Raw, s.PublicKey())
	if err != nil {
		return fail(clierr.Ensure(clierr.CodeUnavailable, "request swap transaction", err))
	}
	tx, err := DecodeTransaction(payload)
	if err != nil {
		return fail(err)
	}
	o.transition(&out, StateBuilt)

	out.FeePayer = tx.Message.AccountKeys[0]
	if !out.FeePayer.Equals(s.PublicKey()) {
		return fail(clierr.New(clierr.CodeFeePayerMismatch, fmt.Sprintf(
			"swap transaction fee payer %s does not match local key %s", out.FeePayer, s.PublicKey())))
	}
	if err := signer.SignTransaction(tx, s); err != nil {
		return fail(err)
	}
	o.transition(&out, StateVerified)

	sig, err := o.rpc.SendTransaction(ctx, tx)
	if err != nil {
		return fail(clierr.Ensure(clierr.CodeSubmissionFailed, "submit swap transaction", err))
	}
	out.Signature = sig
	o.transition(&out, StateSubmitted)

	if err := o.rpc.Confirm(ctx, sig); err != nil {
		return fail(clierr.Ensure(clierr.CodeConfirmationTimeout, "confirm swap transaction "+sig.String(), err))
	}
	o.transition(&out, StateConfirmed)
	return out, nil
}

// DecodeTransaction parses a wire-format transaction, legacy or versioned.
func DecodeTransaction(payload []byte) (*solana.Transaction, error) {
	if len(payload) == 0 {
		return nil, clierr.New(clierr.CodeQuoteMismatch, "swap transaction payload is empty")
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(payload))
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeQuoteMismatch, "decode swap transaction", err)
	}
	if len(tx.Message.AccountKeys) == 0 || tx.Message.Header.NumRequiredSignatures == 0 {
		return nil, clierr.New(clierr.CodeQuoteMismatch, "swap transaction has no fee payer")
	}
	return tx, nil
}
