package x402

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
)

const (
	// Version is the protocol version spoken by this implementation.
	Version = 1

	// SchemeExact is the single-shot exact-amount transfer scheme.
	SchemeExact = "exact"
)

// Extension map keys recognized by the exact scheme.
const (
	extraFeePayerKey = "feePayer"
	extraIssuedAtKey = "issuedAt"
)

// PaymentRequirements is the contract a payment transaction must satisfy.
// It is issued by a resource server alongside a 402 response and is immutable
// once issued.
type PaymentRequirements struct {
	Scheme            string                 `json:"scheme"`
	Network           Network                `json:"network"`
	MaxAmountRequired string                 `json:"maxAmountRequired"`
	Asset             string                 `json:"asset"`
	PayTo             string                 `json:"payTo"`
	Resource          string                 `json:"resource,omitempty"`
	Description       string                 `json:"description,omitempty"`
	MimeType          string                 `json:"mimeType,omitempty"`
	MaxTimeoutSeconds int                    `json:"maxTimeoutSeconds,omitempty"`
	OutputSchema      map[string]interface{} `json:"outputSchema,omitempty"`
	Extra             map[string]interface{} `json:"extra,omitempty"`
}

// Amount parses MaxAmountRequired as an integer amount in the smallest token
// unit.
func (r *PaymentRequirements) Amount() (uint64, error) {
	amount, err := strconv.ParseUint(r.MaxAmountRequired, 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "invalid maxAmountRequired")
	}
	return amount, nil
}

// FeePayer returns the facilitator fee payer address carried in the extension
// map. The exact scheme requires it.
func (r *PaymentRequirements) FeePayer() (string, bool) {
	if r.Extra == nil {
		return "", false
	}

	value, ok := r.Extra[extraFeePayerKey].(string)
	if !ok || len(value) == 0 {
		return "", false
	}
	return value, true
}

// IssuedAt returns the RFC3339 issuance timestamp carried in the extension
// map, when the resource server provided one. Expiry checking is skipped
// without it.
func (r *PaymentRequirements) IssuedAt() (time.Time, bool) {
	if r.Extra == nil {
		return time.Time{}, false
	}

	value, ok := r.Extra[extraIssuedAtKey].(string)
	if !ok {
		return time.Time{}, false
	}

	issuedAt, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false
	}
	return issuedAt, true
}

// ExactSolanaPayload carries a single transport encoded, partially signed
// transaction.
type ExactSolanaPayload struct {
	Transaction string `json:"transaction"`
}

// PaymentPayload is the client's answer to a set of payment requirements.
// It is created once and never mutated after signing; mutation would
// invalidate the client's signature.
type PaymentPayload struct {
	X402Version int                `json:"x402Version"`
	Scheme      string             `json:"scheme"`
	Network     Network            `json:"network"`
	Payload     ExactSolanaPayload `json:"payload"`
}

// VerifyResponse is the outcome of facilitator verification. Semantic
// failures are reported here as a reason code, never as an error.
type VerifyResponse struct {
	IsValid       bool   `json:"isValid"`
	InvalidReason Reason `json:"invalidReason,omitempty"`
	Payer         string `json:"payer,omitempty"`
}

// SettleResponse is the outcome of facilitator settlement. Transaction is
// the base58 transaction signature once broadcast.
type SettleResponse struct {
	Success     bool    `json:"success"`
	ErrorReason Reason  `json:"errorReason,omitempty"`
	Transaction string  `json:"transaction,omitempty"`
	Network     Network `json:"network"`
	Payer       string  `json:"payer,omitempty"`
}
