package execution

import (
	"time"

	clierr "github.com/ggonzalez94/solw/internal/errors"
	"github.com/google/uuid"
)

type ActionStatus string

type StepStatus string

type StepType string

type Intent string

const (
	ActionStatusPlanned   ActionStatus = "planned"
	ActionStatusRunning   ActionStatus = "running"
	ActionStatusCompleted ActionStatus = "completed"
	ActionStatusFailed    ActionStatus = "failed"
	// ActionStatusUnknown means the transaction was sent but its final
	// state could not be observed.
	ActionStatusUnknown ActionStatus = "unknown"
)

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusSubmitted StepStatus = "submitted"
	StepStatusConfirmed StepStatus = "confirmed"
	StepStatusFailed    StepStatus = "failed"
)

const (
	StepTypeCreateAccount StepType = "create_account"
	StepTypeTransfer      StepType = "transfer"
	StepTypeSyncNative    StepType = "sync_native"
	StepTypeCloseAccount  StepType = "close_account"
	StepTypeSwap          StepType = "swap"
)

const (
	IntentWrap   Intent = "wrap"
	IntentUnwrap Intent = "unwrap"
	IntentSwap   Intent = "swap"
)

type Constraints struct {
	SlippageBps    int  `json:"slippage_bps,omitempty"`
	AllowFullClose bool `json:"allow_full_close,omitempty"`
}

type ActionStep struct {
	StepID      string     `json:"step_id"`
	Type        StepType   `json:"type"`
	Status      StepStatus `json:"status"`
	Description string     `json:"description,omitempty"`
	Target      string     `json:"target,omitempty"`
}

type ActionError struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Action struct {
	ActionID     string         `json:"action_id"`
	IntentType   Intent         `json:"intent_type"`
	Provider     string         `json:"provider,omitempty"`
	Status       ActionStatus   `json:"status"`
	ChainID      string         `json:"chain_id"`
	Owner        string         `json:"owner,omitempty"`
	InputMint    string         `json:"input_mint,omitempty"`
	OutputMint   string         `json:"output_mint,omitempty"`
	InputAmount  string         `json:"input_amount,omitempty"`
	OutputAmount string         `json:"output_amount,omitempty"`
	CreatedAt    string         `json:"created_at"`
	UpdatedAt    string         `json:"updated_at"`
	Constraints  Constraints    `json:"constraints"`
	Steps        []ActionStep   `json:"steps"`
	States       []string       `json:"states,omitempty"`
	Signature    string         `json:"signature,omitempty"`
	Warnings     []string       `json:"warnings,omitempty"`
	Error        *ActionError   `json:"error,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// ChainID names a Solana cluster the way actions are keyed.
func ChainID(cluster string) string {
	return "solana:" + cluster
}

// NewActionID returns a fresh "act_"-prefixed identifier.
func NewActionID() string {
	return "act_" + uuid.NewString()
}

func NewAction(actionID string, intent Intent, chainID string, constraints Constraints) Action {
	now := time.Now().UTC().Format(time.RFC3339)
	return Action{
		ActionID:    actionID,
		IntentType:  intent,
		Status:      ActionStatusPlanned,
		ChainID:     chainID,
		CreatedAt:   now,
		UpdatedAt:   now,
		Constraints: constraints,
		Steps:       []ActionStep{},
	}
}

func (a *Action) Touch() {
	a.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
}

func (a *Action) AddStep(t StepType, description, target string) {
	a.Steps = append(a.Steps, ActionStep{
		StepID:      string(t),
		Type:        t,
		Status:      StepStatusPending,
		Description: description,
		Target:      target,
	})
}

// RecordState appends an orchestrator state and moves step statuses along.
func (a *Action) RecordState(state string) {
	a.States = append(a.States, state)
	switch state {
	case "submitted":
		a.Status = ActionStatusRunning
		a.setSteps(StepStatusSubmitted)
	case "confirmed":
		a.Status = ActionStatusCompleted
		a.setSteps(StepStatusConfirmed)
	}
	a.Touch()
}

// Fail records err. A failure after submission leaves the outcome unknown
// unless the chain reported the transaction as failed.
func (a *Action) Fail(err error) {
	a.Status = ActionStatusFailed
	if a.Signature != "" && !clierr.HasCode(err, clierr.CodeTransactionFailed) {
		a.Status = ActionStatusUnknown
	}
	code := clierr.Code(clierr.ExitCode(err))
	a.Error = &ActionError{Code: int(code), Type: code.Name(), Message: err.Error()}
	if a.Status == ActionStatusFailed {
		a.setSteps(StepStatusFailed)
	}
	a.Touch()
}

func (a *Action) setSteps(s StepStatus) {
	for i := range a.Steps {
		a.Steps[i].Status = s
	}
}
