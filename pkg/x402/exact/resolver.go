package exact

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/x402pay/x402-solana/pkg/solana"
	"github.com/x402pay/x402-solana/pkg/solana/token"
)

// resolvedAccount is an associated token account address plus whether the
// account exists on chain. Derivation is a pure function of the owner, mint
// and token program; existence requires one network read.
type resolvedAccount struct {
	address ed25519.PublicKey
	exists  bool
}

// resolveTokenAccount derives the owner's associated token account for the
// mint and checks whether it exists at confirmed commitment. A failed read
// is ErrNetworkUnavailable rather than an assumption of non-existence, since
// guessing wrongly leads to duplicate creation or missed creation.
func resolveTokenAccount(client solana.Client, owner, mint, tokenProgram ed25519.PublicKey) (*resolvedAccount, error) {
	address, err := token.GetAssociatedAccountForProgram(owner, mint, tokenProgram)
	if err != nil {
		return nil, errors.Wrap(err, "error deriving associated token account")
	}

	_, err = client.GetAccountInfo(address, solana.CommitmentConfirmed)
	switch err {
	case nil:
		return &resolvedAccount{address: address, exists: true}, nil
	case solana.ErrNoAccountInfo:
		return &resolvedAccount{address: address, exists: false}, nil
	default:
		return nil, errors.Wrap(ErrNetworkUnavailable, err.Error())
	}
}

// resolveTokenProgram maps a mint to the token program that owns it, which
// determines both the associated account derivation and the transfer
// instruction's program. Unknown owners are ErrUnsupportedAsset.
func resolveTokenProgram(client solana.Client, mint ed25519.PublicKey) (ed25519.PublicKey, error) {
	info, err := client.GetAccountInfo(mint, solana.CommitmentConfirmed)
	switch err {
	case nil:
	case solana.ErrNoAccountInfo:
		return nil, errors.Wrap(ErrUnsupportedAsset, "mint account doesn't exist")
	default:
		return nil, errors.Wrap(ErrNetworkUnavailable, err.Error())
	}

	if !token.IsTokenProgram(info.Owner) {
		return nil, errors.Wrap(ErrUnsupportedAsset, "mint isn't owned by a token program")
	}

	return info.Owner, nil
}
