// Package wrap moves value between native SOL and its wrapped SPL token
// account.
package wrap

import (
	"github.com/gagliardetto/solana-go"
)

type State string

const (
	StateIdle              State = "idle"
	StateBalanceChecked    State = "balance_checked"
	StateAccountEnsured    State = "account_ensured"
	StateInstructionsBuilt State = "instructions_built"
	StateSubmitted         State = "submitted"
	StateConfirmed         State = "confirmed"
	StateFailed            State = "failed"
)

type Direction string

const (
	DirectionWrap   Direction = "wrap"
	DirectionUnwrap Direction = "unwrap"
)

// Step labels one instruction of a plan.
type Step string

const (
	StepCreateAccount Step = "create_account"
	StepTransfer      Step = "transfer"
	StepSyncNative    Step = "sync_native"
	StepCloseAccount  Step = "close_account"
)

// Plan is an ordered instruction list. Steps[i] labels Instructions[i].
type Plan struct {
	Direction      Direction
	Owner          solana.PublicKey
	WrappedAccount solana.PublicKey
	Lamports       uint64
	Steps          []Step
	Instructions   []solana.Instruction
	FeePayer       solana.PublicKey
	Blockhash      solana.Hash
}

func (p *Plan) add(step Step, ix solana.Instruction) {
	p.Steps = append(p.Steps, step)
	p.Instructions = append(p.Instructions, ix)
}

// Outcome is the result of one wrap or unwrap call, successful or not.
type Outcome struct {
	Signature solana.Signature
	Plan      Plan
	States    []State
	Warnings  []string
}

// State is the last state reached.
func (o Outcome) State() State {
	if len(o.States) == 0 {
		return StateIdle
	}
	return o.States[len(o.States)-1]
}
