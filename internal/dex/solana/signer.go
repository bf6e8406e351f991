// Package solana holds the ledger-facing pieces of a conversion leg: signing and broadcast.
package solana

import (
	"context"
	"errors"
	"fmt"

	solana "github.com/gagliardetto/solana-go"

	"dustsweep-go/internal/failure"
)

// Signer is the boundary to whatever authority holds the account's key.
type Signer interface {
	PublicKey() solana.PublicKey
	Sign(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error)
}

// KeypairSigner signs locally with an in-process private key.
type KeypairSigner struct {
	key solana.PrivateKey
}

// NewKeypairSigner wraps key.
func NewKeypairSigner(key solana.PrivateKey) *KeypairSigner {
	return &KeypairSigner{key: key}
}

// PublicKey returns the account the signer speaks for.
func (s *KeypairSigner) PublicKey() solana.PublicKey { return s.key.PublicKey() }

// Sign fills in the owner's signature slot. A transaction that needs any other signer is rejected.
func (s *KeypairSigner) Sign(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, failure.Wrap(failure.SigningRejected, err)
	}
	if tx == nil {
		return nil, failure.New(failure.SigningRejected, "nothing to sign")
	}
	if len(s.key) == 0 {
		return nil, failure.New(failure.SigningRejected, "signer has no key")
	}
	owner := s.key.PublicKey()
	required := int(tx.Message.Header.NumRequiredSignatures)
	if required == 0 || required > len(tx.Message.AccountKeys) {
		return nil, failure.New(failure.SigningRejected, "transaction declares no signers")
	}
	slot := -1
	for i := 0; i < required; i++ {
		if tx.Message.AccountKeys[i].Equals(owner) {
			slot = i
			break
		}
	}
	if slot < 0 {
		return nil, failure.Wrap(failure.SigningRejected, fmt.Errorf("%s is not a required signer", owner))
	}
	content, err := tx.Message.MarshalBinary()
	if err != nil {
		return nil, failure.Wrap(failure.SigningRejected, fmt.Errorf("encode message: %w", err))
	}
	sig, err := s.key.Sign(content)
	if err != nil {
		return nil, failure.Wrap(failure.SigningRejected, fmt.Errorf("sign: %w", err))
	}
	// Unsigned transactions from the aggregator carry zeroed signature slots.
	sigs := make([]solana.Signature, required)
	copy(sigs, tx.Signatures)
	sigs[slot] = sig
	tx.Signatures = sigs
	if err := requireSignatures(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// requireSignatures rejects a transaction with any empty required-signer slot.
func requireSignatures(tx *solana.Transaction) error {
	if len(tx.Signatures) == 0 {
		return failure.Wrap(failure.SigningRejected, errors.New("transaction is unsigned"))
	}
	for i, sig := range tx.Signatures {
		if sig == (solana.Signature{}) {
			return failure.Wrap(failure.SigningRejected, fmt.Errorf("missing signature for %s", tx.Message.AccountKeys[i]))
		}
	}
	return nil
}
