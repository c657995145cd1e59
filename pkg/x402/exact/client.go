package exact

import (
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/x402pay/x402-solana/pkg/common"
	"github.com/x402pay/x402-solana/pkg/solana"
	compute_budget "github.com/x402pay/x402-solana/pkg/solana/computebudget"
	"github.com/x402pay/x402-solana/pkg/solana/token"
	"github.com/x402pay/x402-solana/pkg/x402"
)

// Client builds exact scheme payment payloads on behalf of a paying wallet.
//
// Safe for concurrent use; each build operates on its own requirements and
// touches the chain only through the RPC client.
type Client struct {
	log     *logrus.Entry
	network x402.Network
	sol     solana.Client
	conf    *conf
}

type ClientOption func(*Client)

// WithClientSolanaClient overrides the RPC client, primarily for tests.
func WithClientSolanaClient(sol solana.Client) ClientOption {
	return func(c *Client) {
		c.sol = sol
	}
}

func NewClient(network x402.Network, configProvider ConfigProvider, opts ...ClientOption) (*Client, error) {
	if !network.IsValid() {
		return nil, errors.Wrapf(x402.ErrUnknownNetwork, "%s", string(network))
	}

	c := &Client{
		log:     logrus.StandardLogger().WithField("type", "x402/exact/client"),
		network: network,
		conf:    configProvider(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.sol == nil {
		endpoint := c.conf.solanaEndpoint.Get(context.Background())
		if len(endpoint) == 0 {
			env, err := network.Environment()
			if err != nil {
				return nil, err
			}
			endpoint = string(env)
		}
		c.sol = solana.New(endpoint)
	}

	return c, nil
}

// BuildPaymentPayload assembles, partially signs and encodes a transaction
// satisfying the requirements. The fee payer slot is left unsigned for the
// facilitator, which is what keeps the payment gasless for the wallet.
func (c *Client) BuildPaymentPayload(ctx context.Context, signer *common.Account, requirements *x402.PaymentRequirements) (*x402.PaymentPayload, error) {
	log := c.log.WithField("method", "BuildPaymentPayload")

	if requirements.Scheme != x402.SchemeExact {
		return nil, errors.Errorf("unsupported scheme: %s", requirements.Scheme)
	}
	if requirements.Network != c.network {
		return nil, errors.Errorf("requirements are for network %s, client settles on %s", requirements.Network, c.network)
	}

	amount, err := requirements.Amount()
	if err != nil {
		return nil, err
	}

	feePayerAddress, ok := requirements.FeePayer()
	if !ok {
		return nil, ErrMissingFeePayer
	}
	feePayer, err := decodeAddress(feePayerAddress)
	if err != nil {
		return nil, errors.Wrap(ErrMissingFeePayer, "invalid fee payer address")
	}

	mint, err := decodeAddress(requirements.Asset)
	if err != nil {
		return nil, errors.Wrap(ErrUnsupportedAsset, "invalid mint address")
	}

	payTo, err := decodeAddress(requirements.PayTo)
	if err != nil {
		return nil, errors.Wrap(err, "invalid payTo address")
	}

	if signer.PrivateKey() == nil {
		return nil, ErrSignerUnavailable
	}

	tokenProgram, err := resolveTokenProgram(c.sol, mint)
	if err != nil {
		log.WithError(err).Warn("failure resolving token program for mint")
		return nil, err
	}

	source, err := token.GetAssociatedAccountForProgram(signer.PublicKey().ToBytes(), mint, tokenProgram)
	if err != nil {
		return nil, errors.Wrap(err, "error deriving source token account")
	}

	destination, err := resolveTokenAccount(c.sol, payTo, mint, tokenProgram)
	if err != nil {
		log.WithError(err).Warn("failure resolving destination token account")
		return nil, err
	}

	var instructions []solana.Instruction
	if !destination.exists {
		// Funded by the fee payer, not the wallet, preserving the gasless
		// guarantee.
		createInstruction, _, err := token.CreateAssociatedTokenAccountIdempotentForProgram(feePayer, payTo, mint, tokenProgram)
		if err != nil {
			return nil, errors.Wrap(err, "error creating account creation instruction")
		}
		instructions = append(instructions, createInstruction)
	}

	instructions = append(
		instructions,
		compute_budget.SetComputeUnitPrice(c.conf.computeUnitPrice.Get(ctx)),
		compute_budget.SetComputeUnitLimit(uint32(c.conf.computeUnitLimit.Get(ctx))),
		token.TransferWithProgram(tokenProgram, source, destination.address, signer.PublicKey().ToBytes(), amount),
	)

	txn := solana.NewTransaction(feePayer, instructions...)

	blockhash, err := c.sol.GetLatestBlockhash()
	if err != nil {
		log.WithError(err).Warn("failure getting latest blockhash")
		return nil, errors.Wrap(ErrNetworkUnavailable, err.Error())
	}
	txn.SetBlockhash(blockhash)

	if err := txn.Sign(ed25519.PrivateKey(signer.PrivateKey().ToBytes())); err != nil {
		return nil, errors.Wrap(ErrSignerUnavailable, err.Error())
	}

	return &x402.PaymentPayload{
		X402Version: x402.Version,
		Scheme:      x402.SchemeExact,
		Network:     c.network,
		Payload: x402.ExactSolanaPayload{
			Transaction: txn.MarshalBase64(),
		},
	}, nil
}

// BuildPaymentHeader is BuildPaymentPayload encoded for the X-PAYMENT
// request header.
func (c *Client) BuildPaymentHeader(ctx context.Context, signer *common.Account, requirements *x402.PaymentRequirements) (string, error) {
	payload, err := c.BuildPaymentPayload(ctx, signer, requirements)
	if err != nil {
		return "", err
	}

	return x402.EncodePaymentHeader(payload)
}

func decodeAddress(address string) (ed25519.PublicKey, error) {
	decoded, err := base58.Decode(address)
	if err != nil {
		return nil, errors.Wrap(err, "address isn't valid base58")
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, errors.Errorf("address has invalid length: %d", len(decoded))
	}
	return decoded, nil
}
