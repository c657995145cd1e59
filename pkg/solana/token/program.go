package token

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"
	"math"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/x402pay/x402-solana/pkg/solana"
)

// ProgramKey is the address of the token program that should be used.
//
// Current key: TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA
var ProgramKey = ed25519.PublicKey{6, 221, 246, 225, 215, 101, 161, 147, 217, 203, 225, 70, 206, 235, 121, 172, 28, 180, 133, 237, 95, 91, 55, 145, 58, 140, 245, 133, 126, 255, 0, 169}

// Program2022Key is the address of the token-2022 program.
var Program2022Key ed25519.PublicKey

func init() {
	var err error
	Program2022Key, err = base58.Decode("TokenzQdBNbLqP5VEhdkAW6Q5YdDaTKSHvHjKAE9zZPJU")
	if err != nil {
		panic(err)
	}
}

// IsTokenProgram reports whether the provided key is one of the recognized
// token programs.
func IsTokenProgram(key ed25519.PublicKey) bool {
	return bytes.Equal(key, ProgramKey) || bytes.Equal(key, Program2022Key)
}

type Command byte

const (
	// nolint:varcheck,deadcode,unused
	CommandInitializeMint Command = iota
	CommandInitializeAccount
	// nolint:varcheck,deadcode,unused
	CommandInitializeMultisig
	CommandTransfer
	// nolint:varcheck,deadcode,unused
	CommandApprove
	// nolint:varcheck,deadcode,unused
	CommandRevoke
	// nolint:varcheck,deadcode,unused
	CommandSetAuthority
	// nolint:varcheck,deadcode,unused
	CommandMintTo
	// nolint:varcheck,deadcode,unused
	CommandBurn
	CommandCloseAccount
	// nolint:varcheck,deadcode,unused
	CommandFreezeAccount
	// nolint:varcheck,deadcode,unused
	CommandThawAccount
	CommandTransferChecked

	CommandUnknown = Command(math.MaxUint8)
)

const (
	// nolint:varcheck,deadcode,unused
	ErrorNotRentExempt solana.CustomError = iota
	ErrorInsufficientFunds
	ErrorInvalidMint
	ErrorMintMismatch
	ErrorOwnerMismatch
)

// GetCommand returns the token program command of the instruction at the
// provided index, or ErrIncorrectProgram if the instruction doesn't belong
// to a recognized token program.
func GetCommand(m solana.Message, index int) (Command, error) {
	if index >= len(m.Instructions) {
		return CommandUnknown, errors.Errorf("instruction doesn't exist at %d", index)
	}

	i := m.Instructions[index]

	if !IsTokenProgram(m.Accounts[i.ProgramIndex]) {
		return CommandUnknown, solana.ErrIncorrectProgram
	}
	if len(i.Data) == 0 {
		return CommandUnknown, errors.New("token instruction missing data")
	}

	return Command(i.Data[0]), nil
}

// Transfer moves an amount of tokens from a source token account to a
// destination token account, authorized by the source account's owner.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/instruction.rs#L76-L91
func Transfer(source, dest, owner ed25519.PublicKey, amount uint64) solana.Instruction {
	return TransferWithProgram(ProgramKey, source, dest, owner, amount)
}

// TransferWithProgram is Transfer against an explicit token program, for
// mints owned by the token-2022 program.
func TransferWithProgram(program, source, dest, owner ed25519.PublicKey, amount uint64) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The source account.
	//   1. `[writable]` The destination account.
	//   2. `[signer]` The source account's owner/delegate.
	data := make([]byte, 1+8)
	data[0] = byte(CommandTransfer)
	binary.LittleEndian.PutUint64(data[1:], amount)

	return solana.NewInstruction(
		program,
		data,
		solana.NewAccountMeta(source, false),
		solana.NewAccountMeta(dest, false),
		solana.NewReadonlyAccountMeta(owner, true),
	)
}

type DecompiledTransfer struct {
	Program     ed25519.PublicKey
	Source      ed25519.PublicKey
	Destination ed25519.PublicKey
	Owner       ed25519.PublicKey
	Amount      uint64
}

// DecompileTransfer decompiles the instruction at the provided index into
// a token transfer, or returns ErrIncorrectProgram/ErrIncorrectInstruction
// if the instruction is something else.
func DecompileTransfer(m solana.Message, index int) (*DecompiledTransfer, error) {
	if index >= len(m.Instructions) {
		return nil, errors.Errorf("instruction doesn't exist at %d", index)
	}

	i := m.Instructions[index]

	if !IsTokenProgram(m.Accounts[i.ProgramIndex]) {
		return nil, solana.ErrIncorrectProgram
	}
	if !bytes.HasPrefix(i.Data, []byte{byte(CommandTransfer)}) {
		return nil, solana.ErrIncorrectInstruction
	}
	// note: we do < 3 instead of != 3 in order to support multisig cases.
	if len(i.Accounts) < 3 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(i.Accounts))
	}
	if len(i.Data) != 9 {
		return nil, errors.Errorf("invalid instruction data size: %d", len(i.Data))
	}

	v := &DecompiledTransfer{
		Program:     m.Accounts[i.ProgramIndex],
		Source:      m.Accounts[i.Accounts[0]],
		Destination: m.Accounts[i.Accounts[1]],
		Owner:       m.Accounts[i.Accounts[2]],
	}
	v.Amount = binary.LittleEndian.Uint64(i.Data[1:])
	return v, nil
}

// FindTransfer scans the message for token transfer instructions. It returns
// ErrNoTransfer when none exist, and ErrMultipleTransfers when more than one
// exists; batched transfers are rejected to keep amount matching unambiguous.
func FindTransfer(m solana.Message) (*DecompiledTransfer, error) {
	var found *DecompiledTransfer

	for index := range m.Instructions {
		transfer, err := DecompileTransfer(m, index)
		if err != nil {
			continue
		}

		if found != nil {
			return nil, ErrMultipleTransfers
		}
		found = transfer
	}

	if found == nil {
		return nil, ErrNoTransfer
	}

	return found, nil
}

var (
	ErrNoTransfer        = errors.New("no transfer instruction")
	ErrMultipleTransfers = errors.New("multiple transfer instructions")
)
