package exact

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"sync"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/x402pay/x402-solana/pkg/common"
	"github.com/x402pay/x402-solana/pkg/solana"
	"github.com/x402pay/x402-solana/pkg/solana/token"
	"github.com/x402pay/x402-solana/pkg/testutil"
	"github.com/x402pay/x402-solana/pkg/x402"
)

var errFakeUnimplemented = errors.New("not implemented in fake")

// fakeSolanaClient is an in-memory stand-in for the RPC client. Submitted
// transactions are recorded; signature status and simulation outcomes are
// programmable per test.
type fakeSolanaClient struct {
	mu sync.Mutex

	accounts  map[string]solana.AccountInfo
	blockhash solana.Blockhash

	accountInfoErr error
	simulateResult solana.SimulationResult
	simulateErr    error
	simulated      []solana.Transaction

	submitErr error
	submitted []solana.Transaction

	status    *solana.SignatureStatus
	statusErr error
}

func newFakeSolanaClient() *fakeSolanaClient {
	f := &fakeSolanaClient{
		accounts: make(map[string]solana.AccountInfo),
		simulateResult: solana.SimulationResult{
			UnitsConsumed: 5000,
		},
	}
	_, _ = rand.Read(f.blockhash[:])
	return f
}

func (f *fakeSolanaClient) setAccount(key ed25519.PublicKey, info solana.AccountInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[base58.Encode(key)] = info
}

func (f *fakeSolanaClient) removeAccount(key ed25519.PublicKey) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.accounts, base58.Encode(key))
}

func (f *fakeSolanaClient) GetAccountInfo(key ed25519.PublicKey, _ solana.Commitment) (solana.AccountInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.accountInfoErr != nil {
		return solana.AccountInfo{}, f.accountInfoErr
	}

	info, ok := f.accounts[base58.Encode(key)]
	if !ok {
		return solana.AccountInfo{}, solana.ErrNoAccountInfo
	}
	return info, nil
}

func (f *fakeSolanaClient) GetBalance(ed25519.PublicKey) (uint64, error) {
	return 0, errFakeUnimplemented
}

func (f *fakeSolanaClient) GetLatestBlockhash() (solana.Blockhash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blockhash, nil
}

func (f *fakeSolanaClient) GetMinimumBalanceForRentExemption(uint64) (uint64, error) {
	return 0, errFakeUnimplemented
}

func (f *fakeSolanaClient) GetSignatureStatus(solana.Signature, solana.Commitment) (*solana.SignatureStatus, error) {
	return nil, errFakeUnimplemented
}

func (f *fakeSolanaClient) GetSignatureStatuses(sigs []solana.Signature) ([]*solana.SignatureStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.statusErr != nil {
		return nil, f.statusErr
	}

	statuses := make([]*solana.SignatureStatus, len(sigs))
	for i := range sigs {
		statuses[i] = f.status
	}
	return statuses, nil
}

func (f *fakeSolanaClient) GetTokenAccountBalance(ed25519.PublicKey) (uint64, uint64, error) {
	return 0, 0, errFakeUnimplemented
}

func (f *fakeSolanaClient) RequestAirdrop(ed25519.PublicKey, uint64, solana.Commitment) (solana.Signature, error) {
	return solana.Signature{}, errFakeUnimplemented
}

func (f *fakeSolanaClient) SimulateTransaction(txn solana.Transaction, _ bool) (solana.SimulationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.simulateErr != nil {
		return solana.SimulationResult{}, f.simulateErr
	}

	f.simulated = append(f.simulated, txn)
	return f.simulateResult, nil
}

func (f *fakeSolanaClient) SubmitTransaction(txn solana.Transaction, _ solana.Commitment) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sig := txn.Signatures[0]
	if f.submitErr != nil {
		return sig, f.submitErr
	}

	f.submitted = append(f.submitted, txn)
	return sig, nil
}

func confirmedStatus() *solana.SignatureStatus {
	return &solana.SignatureStatus{
		ConfirmationStatus: "confirmed",
	}
}

type testEnv struct {
	sol         *fakeSolanaClient
	client      *Client
	facilitator *Facilitator

	wallet             *common.Account
	facilitatorAccount *common.Account
	merchant           *common.Account
	mint               *common.Account

	requirements *x402.PaymentRequirements
}

func setup(t *testing.T, overrides *testOverrides) *testEnv {
	testutil.DisableLogging()

	if overrides == nil {
		overrides = &testOverrides{}
	}

	env := &testEnv{
		sol:                newFakeSolanaClient(),
		wallet:             testutil.NewRandomAccount(t),
		facilitatorAccount: testutil.NewRandomAccount(t),
		merchant:           testutil.NewRandomAccount(t),
		mint:               testutil.NewRandomAccount(t),
	}

	env.sol.setAccount(env.mint.PublicKey().ToBytes(), solana.AccountInfo{
		Owner: token.ProgramKey,
	})

	destination, err := env.merchant.ToAssociatedTokenAccount(env.mint)
	require.NoError(t, err)
	env.sol.setAccount(destination.PublicKey().ToBytes(), solana.AccountInfo{
		Owner: token.ProgramKey,
	})

	env.client, err = NewClient(
		x402.NetworkDevnet,
		withManualTestOverrides(overrides),
		WithClientSolanaClient(env.sol),
	)
	require.NoError(t, err)

	env.facilitator, err = NewFacilitator(
		x402.NetworkDevnet,
		env.facilitatorAccount,
		withManualTestOverrides(overrides),
		WithSolanaClient(env.sol),
	)
	require.NoError(t, err)

	env.requirements = &x402.PaymentRequirements{
		Scheme:            x402.SchemeExact,
		Network:           x402.NetworkDevnet,
		MaxAmountRequired: "1000000",
		Asset:             env.mint.PublicKey().ToBase58(),
		PayTo:             env.merchant.PublicKey().ToBase58(),
		Resource:          "https://example.com/reports/weather",
		MaxTimeoutSeconds: 60,
		Extra: map[string]interface{}{
			"feePayer": env.facilitator.FeePayer(),
		},
	}

	return env
}

func decodePayloadTransaction(t *testing.T, payload *x402.PaymentPayload) solana.Transaction {
	var txn solana.Transaction
	require.NoError(t, txn.UnmarshalBase64(payload.Payload.Transaction))
	return txn
}

func reencodePayloadTransaction(payload *x402.PaymentPayload, txn solana.Transaction) *x402.PaymentPayload {
	mutated := *payload
	mutated.Payload.Transaction = txn.MarshalBase64()
	return &mutated
}

// mutatePayloadAmount patches the transfer instruction's amount in place.
// The client's signature no longer covers the mutated message, but amount
// checks run before signature checks, so the amount reason surfaces.
func mutatePayloadAmount(t *testing.T, payload *x402.PaymentPayload, delta int64) *x402.PaymentPayload {
	txn := decodePayloadTransaction(t, payload)

	var patched bool
	for _, ixn := range txn.Message.Instructions {
		program := txn.Message.Accounts[ixn.ProgramIndex]
		if !token.IsTokenProgram(program) {
			continue
		}
		if len(ixn.Data) != 9 || ixn.Data[0] != byte(token.CommandTransfer) {
			continue
		}

		amount := binary.LittleEndian.Uint64(ixn.Data[1:])
		binary.LittleEndian.PutUint64(ixn.Data[1:], uint64(int64(amount)+delta))
		patched = true
	}
	require.True(t, patched)

	return reencodePayloadTransaction(payload, txn)
}
