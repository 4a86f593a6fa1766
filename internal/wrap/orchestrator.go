package wrap

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/ggonzalez94/solw/internal/account"
	"github.com/ggonzalez94/solw/internal/chain"
	clierr "github.com/ggonzalez94/solw/internal/errors"
	"github.com/ggonzalez94/solw/internal/execution/signer"
	"github.com/ggonzalez94/solw/internal/id"
)

// Options are fixed at construction.
type Options struct {
	// OnTransition observes every state change, including failure.
	OnTransition func(State)
}

type UnwrapOptions struct {
	// AllowFullClose permits a partial request to close the whole account.
	AllowFullClose bool
}

type Orchestrator struct {
	rpc       chain.RPC
	signer    signer.Signer
	inspector *account.Inspector
	mint      solana.PublicKey
	opts      Options
}

func New(rpc chain.RPC, s signer.Signer, opts Options) *Orchestrator {
	return &Orchestrator{
		rpc:       rpc,
		signer:    s,
		inspector: account.NewInspector(rpc),
		mint:      solana.MustPublicKeyFromBase58(id.WrappedSOLMint),
		opts:      opts,
	}
}

// run tracks state transitions for a single call.
type run struct {
	o       *Orchestrator
	outcome Outcome
	session *account.Session
}

func (o *Orchestrator) begin(direction Direction) *run {
	r := &run{o: o, session: account.NewSession()}
	r.outcome.Plan = Plan{Direction: direction, Owner: o.signer.PublicKey(), FeePayer: o.signer.PublicKey()}
	r.enter(StateIdle)
	return r
}

func (r *run) enter(s State) {
	r.outcome.States = append(r.outcome.States, s)
	if r.o.opts.OnTransition != nil {
		r.o.opts.OnTransition(s)
	}
}

func (r *run) fail(err error) (Outcome, error) {
	r.enter(StateFailed)
	return r.outcome, err
}

func (r *run) wrappedAccount() (solana.PublicKey, error) {
	return r.session.TokenAddress(r.o.signer.PublicKey(), r.o.mint)
}

// WrappedAccount is the owner's associated wrapped SOL address.
func (o *Orchestrator) WrappedAccount() (solana.PublicKey, error) {
	return account.DeriveTokenAddress(o.signer.PublicKey(), o.mint)
}

func (o *Orchestrator) HasWrappedAccount(ctx context.Context) (bool, error) {
	addr, err := o.WrappedAccount()
	if err != nil {
		return false, err
	}
	return o.inspector.AccountExists(ctx, addr)
}

// WrappedBalance is zero when the account does not exist.
func (o *Orchestrator) WrappedBalance(ctx context.Context) (id.Amount, error) {
	addr, err := o.WrappedAccount()
	if err != nil {
		return id.Amount{}, err
	}
	bal, err := o.inspector.TokenBalance(ctx, addr)
	if err != nil {
		return id.Amount{}, err
	}
	bal.Decimals = id.SOLDecimals
	return bal, nil
}

// Wrap moves lamports from the owner into its wrapped SOL account,
// creating the account first when needed.
func (o *Orchestrator) Wrap(ctx context.Context, lamports uint64) (Outcome, error) {
	r := o.begin(DirectionWrap)
	r.outcome.Plan.Lamports = lamports
	if lamports == 0 {
		return r.fail(clierr.New(clierr.CodeUsage, "wrap amount must be greater than zero"))
	}

	owner := o.signer.PublicKey()
	native, err := o.inspector.NativeBalance(ctx, owner)
	if err != nil {
		return r.fail(clierr.Ensure(clierr.CodeRPCUnavailable, "check native balance", err))
	}
	if native.Base < lamports {
		return r.fail(clierr.New(clierr.CodeInsufficientBalance, fmt.Sprintf(
			"insufficient balance: available %s SOL, required %s SOL",
			native.String(), id.LamportsToSOL(lamports),
		)))
	}
	r.enter(StateBalanceChecked)

	ata, err := r.wrappedAccount()
	if err != nil {
		return r.fail(err)
	}
	r.outcome.Plan.WrappedAccount = ata
	exists, err := o.inspector.AccountExists(ctx, ata)
	if err != nil {
		return r.fail(err)
	}
	if !exists {
		r.outcome.Plan.add(StepCreateAccount, associatedtokenaccount.NewCreateInstruction(owner, owner, o.mint).Build())
	}
	r.enter(StateAccountEnsured)

	r.outcome.Plan.add(StepTransfer, system.NewTransferInstruction(lamports, owner, ata).Build())
	r.outcome.Plan.add(StepSyncNative, token.NewSyncNativeInstruction(ata).Build())
	r.enter(StateInstructionsBuilt)

	return r.submit(ctx)
}

// Unwrap closes the wrapped SOL account, returning its whole balance and
// rent deposit to the owner. A nil amount means everything. Closing is the
// only way to unwrap, so a smaller amount is rejected unless
// opts.AllowFullClose is set.
func (o *Orchestrator) Unwrap(ctx context.Context, amount *uint64, opts UnwrapOptions) (Outcome, error) {
	r := o.begin(DirectionUnwrap)
	owner := o.signer.PublicKey()

	ata, err := r.wrappedAccount()
	if err != nil {
		return r.fail(err)
	}
	r.outcome.Plan.WrappedAccount = ata
	exists, err := o.inspector.AccountExists(ctx, ata)
	if err != nil {
		return r.fail(err)
	}
	if !exists {
		return r.fail(clierr.New(clierr.CodeNoWrappedAccount, fmt.Sprintf("no wrapped SOL account found at %s", ata)))
	}

	bal, err := o.inspector.TokenBalance(ctx, ata)
	if err != nil {
		return r.fail(err)
	}
	if bal.IsZero() {
		return r.fail(clierr.New(clierr.CodeZeroBalance, "no wrapped SOL balance to unwrap"))
	}
	if amount != nil {
		switch {
		case *amount == 0:
			return r.fail(clierr.New(clierr.CodeUsage, "unwrap amount must be greater than zero"))
		case *amount > bal.Base:
			return r.fail(clierr.New(clierr.CodeInsufficientBalance, fmt.Sprintf(
				"insufficient wrapped balance: available %s WSOL, required %s WSOL",
				id.LamportsToSOL(bal.Base), id.LamportsToSOL(*amount),
			)))
		case *amount < bal.Base && !opts.AllowFullClose:
			return r.fail(clierr.New(clierr.CodePartialUnwrapUnsupported, fmt.Sprintf(
				"partial unwrap is not supported: closing the account returns the full %s WSOL; rerun with --close-full to accept",
				id.LamportsToSOL(bal.Base),
			)))
		case *amount < bal.Base:
			r.outcome.Warnings = append(r.outcome.Warnings, fmt.Sprintf(
				"requested %s WSOL but closing the account unwraps the full %s WSOL",
				id.LamportsToSOL(*amount), id.LamportsToSOL(bal.Base),
			))
		}
	}
	r.outcome.Plan.Lamports = bal.Base
	r.enter(StateBalanceChecked)
	r.enter(StateAccountEnsured)

	r.outcome.Plan.add(StepCloseAccount, token.NewCloseAccountInstruction(ata, owner, owner, []solana.PublicKey{}).Build())
	r.enter(StateInstructionsBuilt)

	return r.submit(ctx)
}

func (r *run) submit(ctx context.Context) (Outcome, error) {
	o := r.o
	blockhash, err := o.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return r.fail(clierr.Ensure(clierr.CodeRPCUnavailable, "fetch latest blockhash", err))
	}
	r.outcome.Plan.Blockhash = blockhash

	tx, err := solana.NewTransaction(r.outcome.Plan.Instructions, blockhash, solana.TransactionPayer(r.outcome.Plan.FeePayer))
	if err != nil {
		return r.fail(clierr.Wrap(clierr.CodeInternal, "build transaction", err))
	}
	if err := signer.SignTransaction(tx, o.signer); err != nil {
		return r.fail(err)
	}

	sig, err := o.rpc.SendTransaction(ctx, tx)
	if err != nil {
		return r.fail(clierr.Ensure(clierr.CodeSubmissionFailed, "submit transaction", err))
	}
	r.outcome.Signature = sig
	r.enter(StateSubmitted)

	if err := o.rpc.Confirm(ctx, sig); err != nil {
		return r.fail(clierr.Ensure(clierr.CodeConfirmationTimeout, "confirm transaction "+sig.String(), err))
	}
	r.enter(StateConfirmed)
	return r.outcome, nil
}
