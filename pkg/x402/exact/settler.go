package exact

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/x402pay/x402-solana/pkg/solana"
	"github.com/x402pay/x402-solana/pkg/x402"
)

// defaultConfirmationTimeout bounds confirmation polling when the
// requirements don't carry a timeout.
const defaultConfirmationTimeout = 60 * time.Second

// Settle co-signs a verified payment as fee payer, submits it, and polls for
// confirmation up to the requirements' timeout. Callers are expected to have
// obtained a valid Verify outcome first; a cheap subset of the structural
// checks is re-run defensively, but settlement never re-simulates.
//
// Resubmitting an already confirmed payload is safe: the network tolerates
// duplicate signatures, and settlement treats "already processed" as
// confirmation progress rather than failure.
func (f *Facilitator) Settle(ctx context.Context, payload *x402.PaymentPayload, requirements *x402.PaymentRequirements) (*x402.SettleResponse, error) {
	log := f.log.WithField("method", "Settle")

	if reason := checkEnvelope(payload, requirements, f.network); reason != "" {
		return f.failed("", reason), nil
	}

	p, reason := decodePayment(payload.Payload.Transaction)
	if reason != "" {
		return f.failed("", reason), nil
	}
	payer := p.Payer()

	if reason, err := f.checkAgainstRequirements(p, requirements); err != nil {
		return nil, err
	} else if reason != "" {
		return f.failed(payer, reason), nil
	}

	if reason := p.checkSignatures(); reason != "" {
		return f.failed(payer, reason), nil
	}

	// The fee payer signature completes the transaction and authorizes the
	// network fee against the facilitator's balance.
	if err := p.txn.Sign(ed25519.PrivateKey(f.signer.PrivateKey().ToBytes())); err != nil {
		return nil, errors.Wrap(ErrSignerUnavailable, err.Error())
	}

	sig, err := f.sol.SubmitTransaction(p.txn, solana.CommitmentConfirmed)
	if err != nil && !isDuplicateSubmission(err) {
		log.WithError(err).Warn("failure submitting payment transaction")
		return f.failed(payer, x402.ReasonSubmissionFailed), nil
	}

	reason, err = f.awaitConfirmation(ctx, log, sig, requirements)
	if err != nil {
		return nil, err
	}
	if reason != "" {
		return f.failed(payer, reason), nil
	}

	return &x402.SettleResponse{
		Success:     true,
		Transaction: sig.ToBase58(),
		Network:     f.network,
		Payer:       payer,
	}, nil
}

// awaitConfirmation polls the signature status at a fixed interval until the
// transaction confirms, fails on chain, or the timeout elapses. "Not yet
// confirmed" and transient status lookup failures are both retryable until
// the deadline.
func (f *Facilitator) awaitConfirmation(ctx context.Context, log *logrus.Entry, sig solana.Signature, requirements *x402.PaymentRequirements) (x402.Reason, error) {
	timeout := defaultConfirmationTimeout
	if requirements.MaxTimeoutSeconds > 0 {
		timeout = time.Duration(requirements.MaxTimeoutSeconds) * time.Second
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(f.conf.confirmationPollInterval.Get(ctx))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			return x402.ReasonConfirmationTimeout, nil
		case <-ticker.C:
			statuses, err := f.sol.GetSignatureStatuses([]solana.Signature{sig})
			if err != nil {
				log.WithError(err).Warn("failure getting signature status")
				continue
			}

			status := statuses[0]
			if status == nil {
				continue
			}
			if status.ErrorResult != nil {
				return x402.ReasonOnChainFailure, nil
			}
			if status.Confirmed() {
				return "", nil
			}
		}
	}
}

func (f *Facilitator) failed(payer string, reason x402.Reason) *x402.SettleResponse {
	return &x402.SettleResponse{
		Success:     false,
		ErrorReason: reason,
		Network:     f.network,
		Payer:       payer,
	}
}

// isDuplicateSubmission reports whether a submission error means the network
// has already seen this exact transaction, in which case settlement proceeds
// to confirmation polling instead of failing.
func isDuplicateSubmission(err error) bool {
	txErr, ok := errors.Cause(err).(*solana.TransactionError)
	if !ok {
		return false
	}

	switch txErr.ErrorKey() {
	case solana.TransactionErrorDuplicateSignature, solana.TransactionErrorAlreadyProcessed:
		return true
	default:
		return false
	}
}
