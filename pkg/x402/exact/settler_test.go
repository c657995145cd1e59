package exact

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x402pay/x402-solana/pkg/solana"
	"github.com/x402pay/x402-solana/pkg/x402"
)

func TestSettle_HappyPath(t *testing.T) {
	env := setup(t, nil)
	env.sol.status = confirmedStatus()

	payload, err := env.client.BuildPaymentPayload(context.Background(), env.wallet, env.requirements)
	require.NoError(t, err)

	verifyResp, err := env.facilitator.Verify(context.Background(), payload, env.requirements)
	require.NoError(t, err)
	require.True(t, verifyResp.IsValid)

	resp, err := env.facilitator.Settle(context.Background(), payload, env.requirements)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Empty(t, resp.ErrorReason)
	assert.Equal(t, x402.NetworkDevnet, resp.Network)
	assert.Equal(t, env.wallet.PublicKey().ToBase58(), resp.Payer)
	assert.NotEmpty(t, resp.Transaction)

	// The broadcast transaction is fully signed: wallet plus fee payer.
	require.Len(t, env.sol.submitted, 1)
	submitted := env.sol.submitted[0]
	assert.Equal(t, len(submitted.Signatures), submitted.NumSignedSlots())
	assert.True(t, submitted.VerifySignature(env.facilitatorAccount.PublicKey().ToBytes()))
	assert.True(t, submitted.VerifySignature(env.wallet.PublicKey().ToBytes()))
	assert.Equal(t, resp.Transaction, submitted.Signatures[0].ToBase58())
}

func TestSettle_Twice(t *testing.T) {
	env := setup(t, nil)
	env.sol.status = confirmedStatus()

	payload, err := env.client.BuildPaymentPayload(context.Background(), env.wallet, env.requirements)
	require.NoError(t, err)

	resp, err := env.facilitator.Settle(context.Background(), payload, env.requirements)
	require.NoError(t, err)
	require.True(t, resp.Success)

	// The network has already processed the transaction; resubmission is
	// tolerated and the second settle still reports success.
	env.sol.submitErr = solana.NewTransactionError(solana.TransactionErrorAlreadyProcessed)

	resp, err = env.facilitator.Settle(context.Background(), payload, env.requirements)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, len(env.sol.submitted))
}

func TestSettle_SubmissionFailed(t *testing.T) {
	env := setup(t, nil)
	env.sol.submitErr = solana.NewTransactionError(solana.TransactionErrorBlockhashNotFound)

	payload, err := env.client.BuildPaymentPayload(context.Background(), env.wallet, env.requirements)
	require.NoError(t, err)

	resp, err := env.facilitator.Settle(context.Background(), payload, env.requirements)
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.Equal(t, x402.ReasonSubmissionFailed, resp.ErrorReason)
	assert.Equal(t, env.wallet.PublicKey().ToBase58(), resp.Payer)
}

func TestSettle_OnChainFailure(t *testing.T) {
	env := setup(t, nil)
	env.sol.status = &solana.SignatureStatus{
		ErrorResult: solana.NewTransactionError(solana.TransactionErrorInstructionError),
	}

	payload, err := env.client.BuildPaymentPayload(context.Background(), env.wallet, env.requirements)
	require.NoError(t, err)

	resp, err := env.facilitator.Settle(context.Background(), payload, env.requirements)
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.Equal(t, x402.ReasonOnChainFailure, resp.ErrorReason)
}

func TestSettle_ConfirmationTimeout(t *testing.T) {
	env := setup(t, nil)

	// The status never materializes; settlement gives up at the deadline.
	hurried := *env.requirements
	hurried.MaxTimeoutSeconds = 1

	payload, err := env.client.BuildPaymentPayload(context.Background(), env.wallet, &hurried)
	require.NoError(t, err)

	resp, err := env.facilitator.Settle(context.Background(), payload, &hurried)
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.Equal(t, x402.ReasonConfirmationTimeout, resp.ErrorReason)
}

func TestSettle_ContextCancelled(t *testing.T) {
	env := setup(t, nil)

	payload, err := env.client.BuildPaymentPayload(context.Background(), env.wallet, env.requirements)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = env.facilitator.Settle(ctx, payload, env.requirements)
	assert.Equal(t, context.Canceled, errors.Cause(err))
}

func TestSettle_StructuralRecheck(t *testing.T) {
	env := setup(t, nil)
	env.sol.status = confirmedStatus()

	payload, err := env.client.BuildPaymentPayload(context.Background(), env.wallet, env.requirements)
	require.NoError(t, err)

	resp, err := env.facilitator.Settle(context.Background(), mutatePayloadAmount(t, payload, -1), env.requirements)
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.Equal(t, x402.ReasonInsufficientAmount, resp.ErrorReason)

	// Nothing was signed or broadcast for the rejected payload.
	assert.Empty(t, env.sol.submitted)
}
