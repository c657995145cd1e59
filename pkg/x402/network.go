package x402

import (
	"github.com/pkg/errors"

	"github.com/x402pay/x402-solana/pkg/solana"
)

// Network identifies which Solana cluster a payment settles on. Exactly two
// are recognized.
type Network string

const (
	NetworkMainnet Network = "solana"
	NetworkDevnet  Network = "solana-devnet"
)

var ErrUnknownNetwork = errors.New("unknown network")

func (n Network) IsValid() bool {
	return n == NetworkMainnet || n == NetworkDevnet
}

// Environment returns the RPC endpoint the network maps to.
func (n Network) Environment() (solana.Environment, error) {
	switch n {
	case NetworkMainnet:
		return solana.EnvironmentProd, nil
	case NetworkDevnet:
		return solana.EnvironmentDev, nil
	default:
		return "", errors.Wrapf(ErrUnknownNetwork, "%s", string(n))
	}
}
