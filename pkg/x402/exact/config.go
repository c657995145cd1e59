package exact

import (
	"time"

	"github.com/x402pay/x402-solana/pkg/config"
	"github.com/x402pay/x402-solana/pkg/config/env"
	"github.com/x402pay/x402-solana/pkg/config/memory"
	"github.com/x402pay/x402-solana/pkg/config/wrapper"
)

const (
	envConfigPrefix = "EXACT_SCHEME_"

	// ComputeUnitLimitConfigEnvName bounds execution cost of built payment
	// transactions.
	ComputeUnitLimitConfigEnvName = envConfigPrefix + "COMPUTE_UNIT_LIMIT"
	defaultComputeUnitLimit       = 100_000

	// ComputeUnitPriceConfigEnvName is the priority fee, in micro-lamports
	// per compute unit, attached to built payment transactions.
	ComputeUnitPriceConfigEnvName = envConfigPrefix + "COMPUTE_UNIT_PRICE"
	defaultComputeUnitPrice       = 1_000_000

	// MaxComputeUnitPriceConfigEnvName is the highest priority fee a
	// facilitator will agree to pay on someone else's transaction.
	MaxComputeUnitPriceConfigEnvName = envConfigPrefix + "MAX_COMPUTE_UNIT_PRICE"
	defaultMaxComputeUnitPrice       = 5_000_000

	ConfirmationPollIntervalConfigEnvName = envConfigPrefix + "CONFIRMATION_POLL_INTERVAL"
	defaultConfirmationPollInterval       = time.Second

	// SolanaEndpointConfigEnvName overrides the RPC endpoint implied by the
	// network identifier.
	SolanaEndpointConfigEnvName = envConfigPrefix + "SOLANA_ENDPOINT"
	defaultSolanaEndpoint       = ""
)

type conf struct {
	computeUnitLimit         config.Uint64
	computeUnitPrice         config.Uint64
	maxComputeUnitPrice      config.Uint64
	confirmationPollInterval config.Duration
	solanaEndpoint           config.String
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			computeUnitLimit:         env.NewUint64Config(ComputeUnitLimitConfigEnvName, defaultComputeUnitLimit),
			computeUnitPrice:         env.NewUint64Config(ComputeUnitPriceConfigEnvName, defaultComputeUnitPrice),
			maxComputeUnitPrice:      env.NewUint64Config(MaxComputeUnitPriceConfigEnvName, defaultMaxComputeUnitPrice),
			confirmationPollInterval: env.NewDurationConfig(ConfirmationPollIntervalConfigEnvName, defaultConfirmationPollInterval),
			solanaEndpoint:           env.NewStringConfig(SolanaEndpointConfigEnvName, defaultSolanaEndpoint),
		}
	}
}

type testOverrides struct {
	computeUnitLimit         uint64
	computeUnitPrice         uint64
	maxComputeUnitPrice      uint64
	confirmationPollInterval time.Duration
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	if overrides.computeUnitLimit == 0 {
		overrides.computeUnitLimit = defaultComputeUnitLimit
	}
	if overrides.computeUnitPrice == 0 {
		overrides.computeUnitPrice = defaultComputeUnitPrice
	}
	if overrides.maxComputeUnitPrice == 0 {
		overrides.maxComputeUnitPrice = defaultMaxComputeUnitPrice
	}
	if overrides.confirmationPollInterval == 0 {
		overrides.confirmationPollInterval = time.Millisecond
	}

	return func() *conf {
		return &conf{
			computeUnitLimit:         wrapper.NewUint64Config(memory.NewConfig(overrides.computeUnitLimit), defaultComputeUnitLimit),
			computeUnitPrice:         wrapper.NewUint64Config(memory.NewConfig(overrides.computeUnitPrice), defaultComputeUnitPrice),
			maxComputeUnitPrice:      wrapper.NewUint64Config(memory.NewConfig(overrides.maxComputeUnitPrice), defaultMaxComputeUnitPrice),
			confirmationPollInterval: wrapper.NewDurationConfig(memory.NewConfig(overrides.confirmationPollInterval), defaultConfirmationPollInterval),
			solanaEndpoint:           wrapper.NewStringConfig(memory.NewConfig(defaultSolanaEndpoint), defaultSolanaEndpoint),
		}
	}
}
