package exact

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"

	"github.com/x402pay/x402-solana/pkg/solana"
	compute_budget "github.com/x402pay/x402-solana/pkg/solana/computebudget"
	"github.com/x402pay/x402-solana/pkg/solana/token"
	"github.com/x402pay/x402-solana/pkg/x402"
)

// payment is the decoded form of an exact scheme payment transaction. The
// two signer roles (fee payer and transfer authority) are named fields with
// fixed signature slots, so "exactly one signer present, correct slot" is a
// structural check rather than a scan over a signature list.
type payment struct {
	txn      solana.Transaction
	transfer *token.DecompiledTransfer

	feePayer  ed25519.PublicKey
	authority ed25519.PublicKey
}

// decodePayment decodes the transport encoding and extracts the single token
// transfer. A non-empty reason means the payload can't represent an exact
// scheme payment.
func decodePayment(encoded string) (*payment, x402.Reason) {
	var txn solana.Transaction
	if err := txn.UnmarshalBase64(encoded); err != nil {
		return nil, x402.ReasonMalformedTransaction
	}
	if len(txn.Message.Accounts) == 0 || len(txn.Signatures) == 0 {
		return nil, x402.ReasonMalformedTransaction
	}

	transfer, err := token.FindTransfer(txn.Message)
	switch err {
	case nil:
	case token.ErrNoTransfer:
		return nil, x402.ReasonNoTransferInstruction
	case token.ErrMultipleTransfers:
		return nil, x402.ReasonMultipleTransferInstructions
	default:
		return nil, x402.ReasonMalformedTransaction
	}

	return &payment{
		txn:       txn,
		transfer:  transfer,
		feePayer:  txn.FeePayer(),
		authority: transfer.Owner,
	}, ""
}

// Payer is the base58 address of the transfer authority, which the protocol
// echoes back in verify and settle responses.
func (p *payment) Payer() string {
	return base58.Encode(p.authority)
}

// checkSignatures enforces the partial signing contract at decode time:
// exactly one signature present, it belongs to the transfer authority slot
// and verifies over the message, and the fee payer slot is still empty.
func (p *payment) checkSignatures() x402.Reason {
	if p.txn.NumSignedSlots() != 1 {
		return x402.ReasonUnexpectedSignatureCount
	}

	authoritySlot := p.txn.SignerSlot(p.authority)
	if authoritySlot < 0 {
		return x402.ReasonInvalidSignature
	}
	if p.txn.Signatures[authoritySlot].IsZero() {
		return x402.ReasonUnexpectedSignatureCount
	}

	if !p.txn.VerifySignature(p.authority) {
		return x402.ReasonInvalidSignature
	}

	return ""
}

// computeUnitBudget returns the compute unit price and limit declared by the
// transaction's compute budget instructions, when present.
func (p *payment) computeUnitBudget() (price *uint64, limit *uint32) {
	for _, instruction := range p.txn.Message.Instructions {
		program := p.txn.Message.Accounts[instruction.ProgramIndex]
		if !program.Equal(compute_budget.ProgramKey) {
			continue
		}

		if parsed, err := compute_budget.ParseSetComputeUnitPriceIxnData(instruction.Data); err == nil {
			price = &parsed
		}
		if parsed, err := compute_budget.ParseSetComputeUnitLimitIxnData(instruction.Data); err == nil {
			limit = &parsed
		}
	}

	return price, limit
}

// simulationCopy returns a copy of the transaction with the fee payer slot
// signed, suitable for a signature verified dry-run. The copy is never
// broadcast and mutating its signatures leaves the original untouched.
func (p *payment) simulationCopy(feePayer ed25519.PrivateKey) (solana.Transaction, error) {
	copied := p.txn
	copied.Signatures = make([]solana.Signature, len(p.txn.Signatures))
	copy(copied.Signatures, p.txn.Signatures)

	if err := copied.Sign(feePayer); err != nil {
		return solana.Transaction{}, err
	}
	return copied, nil
}
