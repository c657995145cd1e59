package x402

import (
	"encoding/base64"
	"encoding/json"

	"github.com/pkg/errors"
)

// PaymentHeader is the name of the HTTP request header carrying an encoded
// payment payload.
const PaymentHeader = "X-PAYMENT"

// EncodePaymentHeader encodes a payment payload into the opaque string form
// carried in the X-PAYMENT header: canonical JSON, then base64.
func EncodePaymentHeader(payload *PaymentPayload) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(err, "error marshalling payment payload")
	}

	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodePaymentHeader decodes an X-PAYMENT header value back into a payment
// payload.
func DecodePaymentHeader(value string) (*PaymentPayload, error) {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, errors.Wrap(err, "header value isn't valid base64")
	}

	var payload PaymentPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errors.Wrap(err, "header value isn't a payment payload")
	}

	return &payload, nil
}
