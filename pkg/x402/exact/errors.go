package exact

import "github.com/pkg/errors"

var (
	// ErrMissingFeePayer indicates the requirements don't carry a fee payer
	// address in their extension map. The exact scheme requires one.
	ErrMissingFeePayer = errors.New("requirements are missing a fee payer")

	// ErrUnsupportedAsset indicates the requirements name a mint this
	// implementation can't pay with.
	ErrUnsupportedAsset = errors.New("unsupported asset")

	// ErrSignerUnavailable indicates the signing capability failed or has no
	// private key.
	ErrSignerUnavailable = errors.New("signer unavailable")

	// ErrNetworkUnavailable indicates a network read or submission failed
	// before an outcome could be determined. The operation may be retried
	// by the caller with fresh requirements.
	ErrNetworkUnavailable = errors.New("network unavailable")
)
