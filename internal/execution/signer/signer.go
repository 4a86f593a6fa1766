package signer

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	clierr "github.com/ggonzalez94/solw/internal/errors"
)

// Signer is the local authority used to sign transactions.
type Signer interface {
	PublicKey() solana.PublicKey
	Sign(message []byte) (solana.Signature, error)
}

// SignTransaction signs tx's message and stores the signature in the slot
// matching the signer's position among the required signers. Other slots
// are left as they are.
func SignTransaction(tx *solana.Transaction, s Signer) error {
	required := int(tx.Message.Header.NumRequiredSignatures)
	slot := -1
	for i := 0; i < required && i < len(tx.Message.AccountKeys); i++ {
		if tx.Message.AccountKeys[i].Equals(s.PublicKey()) {
			slot = i
			break
		}
	}
	if slot < 0 {
		return clierr.New(clierr.CodeSigner, fmt.Sprintf("%s is not a required signer of this transaction", s.PublicKey()))
	}

	message, err := tx.Message.MarshalBinary()
	if err != nil {
		return clierr.Wrap(clierr.CodeInternal, "serialize transaction message", err)
	}
	sig, err := s.Sign(message)
	if err != nil {
		return clierr.Wrap(clierr.CodeSigner, "sign transaction", err)
	}
	for len(tx.Signatures) < required {
		tx.Signatures = append(tx.Signatures, solana.Signature{})
	}
	tx.Signatures[slot] = sig
	return nil
}
