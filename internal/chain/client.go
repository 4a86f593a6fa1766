package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	clierr "github.com/ggonzalez94/solw/internal/errors"
)

type Config struct {
	Endpoint       string
	Commitment     rpc.CommitmentType
	PollInterval   time.Duration
	ConfirmTimeout time.Duration
	// RequestTimeout bounds each read and the send. Zero leaves only the
	// caller's context.
	RequestTimeout time.Duration
	SkipPreflight  bool
}

// Client implements RPC over a JSON-RPC node.
type Client struct {
	rpc            *rpc.Client
	commitment     rpc.CommitmentType
	pollInterval   time.Duration
	confirmTimeout time.Duration
	requestTimeout time.Duration
	skipPreflight  bool
}

func NewClient(cfg Config) *Client {
	commitment := cfg.Commitment
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}
	return &Client{
		rpc:            rpc.New(cfg.Endpoint),
		commitment:     commitment,
		pollInterval:   cfg.PollInterval,
		confirmTimeout: cfg.ConfirmTimeout,
		requestTimeout: cfg.RequestTimeout,
		skipPreflight:  cfg.SkipPreflight,
	}
}

func (c *Client) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.requestTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.requestTimeout)
}

func (c *Client) Commitment() rpc.CommitmentType {
	return c.commitment
}

func (c *Client) GetBalance(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	out, err := c.rpc.GetBalance(ctx, owner, c.commitment)
	if err != nil {
		return 0, unavailable("get balance", err)
	}
	return out.Value, nil
}

func (c *Client) GetAccountInfo(ctx context.Context, address solana.PublicKey) (*AccountInfo, error) {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	out, err := c.rpc.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
		Commitment: c.commitment,
		Encoding:   solana.EncodingBase64,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, nil
		}
		return nil, unavailable("get account info", err)
	}
	if out == nil || out.Value == nil {
		return nil, nil
	}
	info := &AccountInfo{
		Owner:    out.Value.Owner,
		Lamports: out.Value.Lamports,
	}
	if out.Value.Data != nil {
		info.Data = out.Value.Data.GetBinary()
	}
	return info, nil
}

func (c *Client) GetTokenAccountBalance(ctx context.Context, address solana.PublicKey) (TokenAmount, error) {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	out, err := c.rpc.GetTokenAccountBalance(ctx, address, c.commitment)
	if err != nil {
		return TokenAmount{}, unavailable("get token account balance", err)
	}
	if out == nil || out.Value == nil {
		return TokenAmount{}, clierr.New(clierr.CodeRPCUnavailable, "get token account balance: empty response")
	}
	amount, err := strconv.ParseUint(out.Value.Amount, 10, 64)
	if err != nil {
		return TokenAmount{}, clierr.Wrap(clierr.CodeRPCUnavailable, "parse token amount", err)
	}
	return TokenAmount{Amount: amount, Decimals: out.Value.Decimals}, nil
}

// parsedTokenAccount is the jsonParsed layout of an SPL token account.
type parsedTokenAccount struct {
	Parsed struct {
		Info struct {
			Mint        string `json:"mint"`
			TokenAmount struct {
				Amount   string `json:"amount"`
				Decimals uint8  `json:"decimals"`
			} `json:"tokenAmount"`
		} `json:"info"`
	} `json:"parsed"`
}

func (c *Client) GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey) ([]TokenHolding, error) {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	out, err := c.rpc.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{ProgramId: solana.TokenProgramID.ToPointer()},
		&rpc.GetTokenAccountsOpts{Commitment: c.commitment, Encoding: solana.EncodingJSONParsed},
	)
	if err != nil {
		return nil, unavailable("get token accounts", err)
	}
	holdings := make([]TokenHolding, 0, len(out.Value))
	for _, item := range out.Value {
		if item == nil || item.Account.Data == nil {
			continue
		}
		var parsed parsedTokenAccount
		if err := json.Unmarshal(item.Account.Data.GetRawJSON(), &parsed); err != nil {
			return nil, clierr.Wrap(clierr.CodeRPCUnavailable, "decode token account", err)
		}
		mint, err := solana.PublicKeyFromBase58(parsed.Parsed.Info.Mint)
		if err != nil {
			return nil, clierr.Wrap(clierr.CodeRPCUnavailable, "decode token account mint", err)
		}
		amount, err := strconv.ParseUint(parsed.Parsed.Info.TokenAmount.Amount, 10, 64)
		if err != nil {
			return nil, clierr.Wrap(clierr.CodeRPCUnavailable, "decode token account amount", err)
		}
		holdings = append(holdings, TokenHolding{
			Account:  item.Pubkey,
			Mint:     mint,
			Amount:   amount,
			Decimals: parsed.Parsed.Info.TokenAmount.Decimals,
		})
	}
	return holdings, nil
}

func (c *Client) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	out, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		return solana.Hash{}, unavailable("get latest blockhash", err)
	}
	if out == nil || out.Value == nil {
		return solana.Hash{}, clierr.New(clierr.CodeRPCUnavailable, "get latest blockhash: empty response")
	}
	return out.Value.Blockhash, nil
}

func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       c.skipPreflight,
		PreflightCommitment: c.commitment,
	})
	if err != nil {
		return solana.Signature{}, clierr.Wrap(clierr.CodeSubmissionFailed, "send transaction", err)
	}
	return sig, nil
}

func (c *Client) Confirm(ctx context.Context, signature solana.Signature) error {
	return waitForCommitment(ctx, c.confirmTimeout, c.pollInterval, c.commitment, func(ctx context.Context) (SignatureStatus, error) {
		out, err := c.rpc.GetSignatureStatuses(ctx, false, signature)
		if err != nil {
			return SignatureStatus{}, err
		}
		if out == nil || len(out.Value) == 0 || out.Value[0] == nil {
			return SignatureStatus{}, nil
		}
		st := out.Value[0]
		return SignatureStatus{Found: true, Err: st.Err, Status: st.ConfirmationStatus}, nil
	})
}

func unavailable(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return clierr.Wrap(clierr.CodeInterrupted, fmt.Sprintf("%s interrupted", op), err)
	}
	return clierr.Wrap(clierr.CodeRPCUnavailable, op, err)
}
