package wrap

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/ggonzalez94/solw/internal/chain/chaintest"
	clierr "github.com/ggonzalez94/solw/internal/errors"
	"github.com/ggonzalez94/solw/internal/id"
	"github.com/ggonzalez94/solw/internal/keycodec"
	"github.com/stretchr/testify/require"
)

var wsol = solana.MustPublicKeyFromBase58(id.WrappedSOLMint)

func newFixture(t *testing.T) (*chaintest.Fake, keycodec.Keypair, solana.PublicKey) {
	t.Helper()
	kp, err := keycodec.Generate()
	require.NoError(t, err)
	ata, _, err := solana.FindAssociatedTokenAddress(kp.PublicKey(), wsol)
	require.NoError(t, err)
	return chaintest.New(), kp, ata
}

func lamports(sol string) uint64 {
	v, err := id.SOLToLamports(sol)
	if err != nil {
		panic(err)
	}
	return v
}

func TestWrapCreatesAccountWhenMissing(t *testing.T) {
	fake, kp, ata := newFixture(t)
	fake.Balances[kp.PublicKey()] = lamports("5")

	var seen []State
	o := New(fake, kp, Options{OnTransition: func(s State) { seen = append(seen, s) }})
	out, err := o.Wrap(context.Background(), lamports("2"))
	require.NoError(t, err)

	require.Equal(t, []Step{StepCreateAccount, StepTransfer, StepSyncNative}, out.Plan.Steps)
	require.Len(t, out.Plan.Instructions, 3)
	require.Equal(t, solana.SPLAssociatedTokenAccountProgramID, out.Plan.Instructions[0].ProgramID())
	require.Equal(t, solana.SystemProgramID, out.Plan.Instructions[1].ProgramID())
	require.Equal(t, solana.TokenProgramID, out.Plan.Instructions[2].ProgramID())
	require.Equal(t, ata, out.Plan.WrappedAccount)
	require.Equal(t, kp.PublicKey(), out.Plan.FeePayer)
	require.Equal(t, fake.Blockhash, out.Plan.Blockhash)

	require.False(t, out.Signature.IsZero())
	require.Equal(t, 1, fake.SentCount())
	require.Equal(t, []solana.Signature{out.Signature}, fake.Confirmed)

	want := []State{StateIdle, StateBalanceChecked, StateAccountEnsured, StateInstructionsBuilt, StateSubmitted, StateConfirmed}
	require.Equal(t, want, out.States)
	require.Equal(t, want, seen)
	require.Equal(t, StateConfirmed, out.State())
}

func TestWrapTransfersExactLamports(t *testing.T) {
	fake, kp, ata := newFixture(t)
	fake.Balances[kp.PublicKey()] = lamports("1")
	fake.SetTokenAccount(ata, wsol, 0, 9)

	out, err := New(fake, kp, Options{}).Wrap(context.Background(), lamports("0.25"))
	require.NoError(t, err)
	require.Equal(t, []Step{StepTransfer, StepSyncNative}, out.Plan.Steps)

	transfer, ok := out.Plan.Instructions[0].(*system.Instruction)
	require.True(t, ok)
	inner, ok := transfer.Impl.(system.Transfer)
	require.True(t, ok)
	require.Equal(t, uint64(250_000_000), *inner.Lamports)
	require.Equal(t, ata, inner.GetRecipientAccount().PublicKey)

	tx := fake.Sent[0]
	require.Equal(t, kp.PublicKey(), tx.Message.AccountKeys[0])
	msg, err := tx.Message.MarshalBinary()
	require.NoError(t, err)
	require.True(t, tx.Signatures[0].Verify(kp.PublicKey(), msg))
}

func TestWrapInsufficientBalanceDoesNotSubmit(t *testing.T) {
	fake, kp, _ := newFixture(t)
	fake.Balances[kp.PublicKey()] = lamports("1")

	out, err := New(fake, kp, Options{}).Wrap(context.Background(), lamports("2"))
	require.Error(t, err)
	require.True(t, clierr.HasCode(err, clierr.CodeInsufficientBalance))
	require.Zero(t, fake.SentCount())
	require.Empty(t, out.Plan.Instructions)
	require.Equal(t, []State{StateIdle, StateFailed}, out.States)
}

func TestWrapRejectsZero(t *testing.T) {
	fake, kp, _ := newFixture(t)
	_, err := New(fake, kp, Options{}).Wrap(context.Background(), 0)
	require.True(t, clierr.HasCode(err, clierr.CodeUsage))
	require.Zero(t, fake.SentCount())
}

func TestWrapConfirmationFailurePreservesSignature(t *testing.T) {
	fake, kp, _ := newFixture(t)
	fake.Balances[kp.PublicKey()] = lamports("3")
	fake.ConfirmErr = clierr.New(clierr.CodeInterrupted, "confirmation interrupted")

	out, err := New(fake, kp, Options{}).Wrap(context.Background(), lamports("1"))
	require.True(t, clierr.HasCode(err, clierr.CodeInterrupted))
	require.ErrorIs(t, err, fake.ConfirmErr)
	require.Contains(t, err.Error(), "confirm transaction "+out.Signature.String())
	require.False(t, out.Signature.IsZero())
	require.Equal(t, StateFailed, out.State())
	require.Contains(t, out.States, StateSubmitted)
}

func TestWrapSubmissionFailure(t *testing.T) {
	fake, kp, _ := newFixture(t)
	fake.Balances[kp.PublicKey()] = lamports("3")
	fake.SendErr = context.DeadlineExceeded

	_, err := New(fake, kp, Options{}).Wrap(context.Background(), lamports("1"))
	require.True(t, clierr.HasCode(err, clierr.CodeSubmissionFailed))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUnwrapWithoutAccount(t *testing.T) {
	fake, kp, _ := newFixture(t)
	_, err := New(fake, kp, Options{}).Unwrap(context.Background(), nil, UnwrapOptions{})
	require.True(t, clierr.HasCode(err, clierr.CodeNoWrappedAccount))
	require.Zero(t, fake.SentCount())
}

func TestUnwrapZeroBalance(t *testing.T) {
	fake, kp, ata := newFixture(t)
	fake.SetTokenAccount(ata, wsol, 0, 9)
	_, err := New(fake, kp, Options{}).Unwrap(context.Background(), nil, UnwrapOptions{})
	require.True(t, clierr.HasCode(err, clierr.CodeZeroBalance))
}

func TestUnwrapAllClosesAccount(t *testing.T) {
	fake, kp, ata := newFixture(t)
	fake.SetTokenAccount(ata, wsol, lamports("3"), 9)

	out, err := New(fake, kp, Options{}).Unwrap(context.Background(), nil, UnwrapOptions{})
	require.NoError(t, err)
	require.Equal(t, []Step{StepCloseAccount}, out.Plan.Steps)
	require.Equal(t, solana.TokenProgramID, out.Plan.Instructions[0].ProgramID())
	require.Equal(t, lamports("3"), out.Plan.Lamports)
	require.Empty(t, out.Warnings)
	require.Equal(t, StateConfirmed, out.State())
}

func TestUnwrapLeavesNoWrappedBalance(t *testing.T) {
	fake, kp, ata := newFixture(t)
	fake.SetTokenAccount(ata, wsol, lamports("3"), 9)
	fake.OnSend = func(*solana.Transaction) { fake.RemoveAccount(ata) }
	o := New(fake, kp, Options{})

	_, err := o.Unwrap(context.Background(), nil, UnwrapOptions{})
	require.NoError(t, err)

	bal, err := o.WrappedBalance(context.Background())
	require.NoError(t, err)
	require.True(t, bal.IsZero())
	has, err := o.HasWrappedAccount(context.Background())
	require.NoError(t, err)
	require.False(t, has)
}

func TestUnwrapExactBalanceIsNotPartial(t *testing.T) {
	fake, kp, ata := newFixture(t)
	fake.SetTokenAccount(ata, wsol, lamports("3"), 9)
	amount := lamports("3")

	out, err := New(fake, kp, Options{}).Unwrap(context.Background(), &amount, UnwrapOptions{})
	require.NoError(t, err)
	require.Empty(t, out.Warnings)
}

func TestUnwrapPartialRejectedByDefault(t *testing.T) {
	fake, kp, ata := newFixture(t)
	fake.SetTokenAccount(ata, wsol, lamports("3"), 9)
	amount := lamports("1")

	_, err := New(fake, kp, Options{}).Unwrap(context.Background(), &amount, UnwrapOptions{})
	require.True(t, clierr.HasCode(err, clierr.CodePartialUnwrapUnsupported))
	require.Zero(t, fake.SentCount())
}

func TestUnwrapPartialWithFullCloseWarns(t *testing.T) {
	fake, kp, ata := newFixture(t)
	fake.SetTokenAccount(ata, wsol, lamports("3"), 9)
	amount := lamports("1")

	out, err := New(fake, kp, Options{}).Unwrap(context.Background(), &amount, UnwrapOptions{AllowFullClose: true})
	require.NoError(t, err)
	require.Len(t, out.Warnings, 1)
	require.Contains(t, out.Warnings[0], "full 3 WSOL")
	require.Equal(t, lamports("3"), out.Plan.Lamports)
}

func TestUnwrapMoreThanBalance(t *testing.T) {
	fake, kp, ata := newFixture(t)
	fake.SetTokenAccount(ata, wsol, lamports("1"), 9)
	amount := lamports("2")

	_, err := New(fake, kp, Options{}).Unwrap(context.Background(), &amount, UnwrapOptions{AllowFullClose: true})
	require.True(t, clierr.HasCode(err, clierr.CodeInsufficientBalance))
	require.Zero(t, fake.SentCount())
}

func TestWrappedBalanceHelpers(t *testing.T) {
	fake, kp, ata := newFixture(t)
	o := New(fake, kp, Options{})

	has, err := o.HasWrappedAccount(context.Background())
	require.NoError(t, err)
	require.False(t, has)
	bal, err := o.WrappedBalance(context.Background())
	require.NoError(t, err)
	require.True(t, bal.IsZero())

	fake.SetTokenAccount(ata, wsol, lamports("1.5"), 9)
	has, err = o.HasWrappedAccount(context.Background())
	require.NoError(t, err)
	require.True(t, has)
	bal, err = o.WrappedBalance(context.Background())
	require.NoError(t, err)
	require.Equal(t, "1.5", bal.String())

	addr, err := o.WrappedAccount()
	require.NoError(t, err)
	require.Equal(t, ata, addr)
}

func TestWrapBalanceFailureNamesStep(t *testing.T) {
	fake, kp, _ := newFixture(t)
	fake.BalanceErr = clierr.New(clierr.CodeInterrupted, "interrupted")

	_, err := New(fake, kp, Options{}).Wrap(context.Background(), lamports("1"))
	require.True(t, clierr.HasCode(err, clierr.CodeInterrupted))
	require.Contains(t, err.Error(), "check native balance")
	require.Zero(t, fake.SentCount())
}
