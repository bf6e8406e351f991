package solana

import (
	"context"
	"testing"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"dustsweep-go/internal/failure"
)

func transferTx(t *testing.T, payer solana.PublicKey) *solana.Transaction {
	t.Helper()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(1, payer, solana.NewWallet().PublicKey()).Build()},
		solana.Hash{9, 9, 9},
		solana.TransactionPayer(payer),
	)
	if err != nil {
		t.Fatalf("NewTransaction: %v", err)
	}
	return tx
}

func TestKeypairSignerSignsOwnerSlot(t *testing.T) {
	wallet := solana.NewWallet()
	signer := NewKeypairSigner(wallet.PrivateKey)
	tx := transferTx(t, wallet.PublicKey())
	// aggregator transactions arrive with a zeroed placeholder
	tx.Signatures = []solana.Signature{{}}

	signed, err := signer.Sign(context.Background(), tx)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(signed.Signatures) != 1 {
		t.Fatalf("expected 1 signature, got %d", len(signed.Signatures))
	}
	msg, err := signed.Message.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	if !signed.Signatures[0].Verify(wallet.PublicKey(), msg) {
		t.Fatalf("signature does not verify against owner")
	}
}

func TestKeypairSignerRejectsForeignPayer(t *testing.T) {
	signer := NewKeypairSigner(solana.NewWallet().PrivateKey)
	tx := transferTx(t, solana.NewWallet().PublicKey())

	_, err := signer.Sign(context.Background(), tx)
	if !failure.Is(err, failure.SigningRejected) {
		t.Fatalf("expected signing rejection, got %v", err)
	}
}

func TestKeypairSignerRejectsNil(t *testing.T) {
	signer := NewKeypairSigner(solana.NewWallet().PrivateKey)
	if _, err := signer.Sign(context.Background(), nil); !failure.Is(err, failure.SigningRejected) {
		t.Fatalf("expected signing rejection, got %v", err)
	}
}

func TestKeypairSignerCancelled(t *testing.T) {
	wallet := solana.NewWallet()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewKeypairSigner(wallet.PrivateKey).Sign(ctx, transferTx(t, wallet.PublicKey()))
	if !failure.Is(err, failure.SigningRejected) {
		t.Fatalf("expected signing rejection, got %v", err)
	}
}
