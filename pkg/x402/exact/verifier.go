package exact

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"time"

	"github.com/pkg/errors"

	"github.com/x402pay/x402-solana/pkg/solana/token"
	"github.com/x402pay/x402-solana/pkg/x402"
)

// Verify checks a payment payload against its requirements: structural and
// economic checks first, then a non-committing dry-run against current
// network state. Nothing is broadcast.
//
// A failed verification is a normal outcome and comes back as
// {IsValid: false, InvalidReason: ...}; an error is returned only for
// malformed requirements or an unreachable network.
func (f *Facilitator) Verify(ctx context.Context, payload *x402.PaymentPayload, requirements *x402.PaymentRequirements) (*x402.VerifyResponse, error) {
	log := f.log.WithField("method", "Verify")

	if reason := checkEnvelope(payload, requirements, f.network); reason != "" {
		return invalid("", reason), nil
	}

	p, reason := decodePayment(payload.Payload.Transaction)
	if reason != "" {
		return invalid("", reason), nil
	}
	payer := p.Payer()

	if reason, err := f.checkAgainstRequirements(p, requirements); err != nil {
		return nil, err
	} else if reason != "" {
		return invalid(payer, reason), nil
	}

	if reason := p.checkSignatures(); reason != "" {
		return invalid(payer, reason), nil
	}

	if reason, err := f.simulate(ctx, p); err != nil {
		log.WithError(err).Warn("failure simulating payment transaction")
		return nil, err
	} else if reason != "" {
		return invalid(payer, reason), nil
	}

	if f.expired(requirements) {
		return invalid(payer, x402.ReasonExpired), nil
	}

	return &x402.VerifyResponse{
		IsValid: true,
		Payer:   payer,
	}, nil
}

// checkEnvelope validates the protocol, scheme and network fields shared by
// verification and settlement.
func checkEnvelope(payload *x402.PaymentPayload, requirements *x402.PaymentRequirements, network x402.Network) x402.Reason {
	if payload.X402Version != x402.Version {
		return x402.ReasonSchemeMismatch
	}
	if payload.Scheme != x402.SchemeExact || requirements.Scheme != x402.SchemeExact {
		return x402.ReasonSchemeMismatch
	}
	if payload.Network != requirements.Network || payload.Network != network {
		return x402.ReasonNetworkMismatch
	}
	return ""
}

// checkAgainstRequirements runs the pure recipient, amount and fee payer
// checks. These are cheap and re-run defensively before settlement.
func (f *Facilitator) checkAgainstRequirements(p *payment, requirements *x402.PaymentRequirements) (x402.Reason, error) {
	payTo, err := decodeAddress(requirements.PayTo)
	if err != nil {
		return "", errors.Wrap(err, "invalid payTo address")
	}
	mint, err := decodeAddress(requirements.Asset)
	if err != nil {
		return "", errors.Wrap(err, "invalid mint address")
	}
	amount, err := requirements.Amount()
	if err != nil {
		return "", err
	}

	expectedDestination, err := token.GetAssociatedAccountForProgram(payTo, mint, p.transfer.Program)
	if err != nil {
		return "", errors.Wrap(err, "error deriving recipient token account")
	}
	if !bytes.Equal(p.transfer.Destination, expectedDestination) {
		return x402.ReasonWrongRecipient, nil
	}

	// Exact means exact: partial payments and over payments are both
	// rejected.
	if p.transfer.Amount < amount {
		return x402.ReasonInsufficientAmount, nil
	}
	if p.transfer.Amount != amount {
		return x402.ReasonAmountMismatch, nil
	}

	requiredFeePayer, ok := requirements.FeePayer()
	if !ok {
		return "", ErrMissingFeePayer
	}
	facilitatorIdentity := ed25519.PublicKey(f.signer.PublicKey().ToBytes())
	if requiredFeePayer != f.FeePayer() {
		return x402.ReasonWrongFeePayer, nil
	}
	if !bytes.Equal(p.feePayer, facilitatorIdentity) {
		return x402.ReasonWrongFeePayer, nil
	}

	return "", nil
}

// simulate dry-runs the transaction with a synthetic fee payer signature
// attached for simulation purposes only, and enforces the compute budget
// ceilings the facilitator is willing to pay for.
func (f *Facilitator) simulate(ctx context.Context, p *payment) (x402.Reason, error) {
	declaredPrice, declaredLimit := p.computeUnitBudget()
	if declaredPrice != nil && *declaredPrice > f.conf.maxComputeUnitPrice.Get(ctx) {
		return x402.ReasonComputeBudgetExceeded, nil
	}

	copied, err := p.simulationCopy(ed25519.PrivateKey(f.signer.PrivateKey().ToBytes()))
	if err != nil {
		return "", errors.Wrap(ErrSignerUnavailable, err.Error())
	}

	result, err := f.sol.SimulateTransaction(copied, true)
	if err != nil {
		return "", errors.Wrap(ErrNetworkUnavailable, err.Error())
	}
	if result.Err != nil {
		return x402.ReasonSimulationFailed, nil
	}

	ceiling := f.conf.computeUnitLimit.Get(ctx)
	if declaredLimit != nil {
		ceiling = uint64(*declaredLimit)
	}
	if result.UnitsConsumed > ceiling {
		return x402.ReasonComputeBudgetExceeded, nil
	}

	return "", nil
}

// expired reports whether the requirements have aged past maxTimeoutSeconds.
// The check is skipped when no issuance timestamp or timeout is available.
func (f *Facilitator) expired(requirements *x402.PaymentRequirements) bool {
	if requirements.MaxTimeoutSeconds <= 0 {
		return false
	}

	issuedAt, ok := requirements.IssuedAt()
	if !ok {
		return false
	}

	deadline := issuedAt.Add(time.Duration(requirements.MaxTimeoutSeconds) * time.Second)
	return f.now().After(deadline)
}

func invalid(payer string, reason x402.Reason) *x402.VerifyResponse {
	return &x402.VerifyResponse{
		IsValid:       false,
		InvalidReason: reason,
		Payer:         payer,
	}
}
