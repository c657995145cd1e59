package exact

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/x402pay/x402-solana/pkg/common"
	"github.com/x402pay/x402-solana/pkg/solana"
	"github.com/x402pay/x402-solana/pkg/x402"
)

// Facilitator verifies and settles exact scheme payments on behalf of
// resource servers, fronting the network fee with its own key.
//
// Safe for concurrent use; verification and settlement of distinct payloads
// share no mutable state.
type Facilitator struct {
	log     *logrus.Entry
	network x402.Network
	sol     solana.Client
	signer  *common.Account
	conf    *conf

	// now decides requirement expiry. Wall clock unless overridden; the
	// protocol leaves the clock source to the facilitator operator.
	now func() time.Time
}

type FacilitatorOption func(*Facilitator)

// WithSolanaClient overrides the RPC client, primarily for tests.
func WithSolanaClient(sol solana.Client) FacilitatorOption {
	return func(f *Facilitator) {
		f.sol = sol
	}
}

// WithClock overrides the clock used for requirement expiry.
func WithClock(now func() time.Time) FacilitatorOption {
	return func(f *Facilitator) {
		f.now = now
	}
}

func NewFacilitator(network x402.Network, signer *common.Account, configProvider ConfigProvider, opts ...FacilitatorOption) (*Facilitator, error) {
	if !network.IsValid() {
		return nil, errors.Wrapf(x402.ErrUnknownNetwork, "%s", string(network))
	}
	if err := signer.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid signer")
	}
	if signer.PrivateKey() == nil {
		return nil, ErrSignerUnavailable
	}

	f := &Facilitator{
		log:     logrus.StandardLogger().WithField("type", "x402/exact/facilitator"),
		network: network,
		signer:  signer,
		conf:    configProvider(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.sol == nil {
		endpoint := f.conf.solanaEndpoint.Get(context.Background())
		if len(endpoint) == 0 {
			env, err := network.Environment()
			if err != nil {
				return nil, err
			}
			endpoint = string(env)
		}
		f.sol = solana.New(endpoint)
	}

	return f, nil
}

// FeePayer is the address the facilitator signs fees with. Resource servers
// place it in requirements.extra.feePayer.
func (f *Facilitator) FeePayer() string {
	return f.signer.PublicKey().ToBase58()
}
