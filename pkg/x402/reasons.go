package x402

// Reason is a machine readable code explaining why a payment was not
// verified or settled. A populated reason is a normal, expected outcome,
// not a fault.
type Reason string

// Verification reason codes, in rough check order.
const (
	ReasonSchemeMismatch               Reason = "SchemeMismatch"
	ReasonNetworkMismatch              Reason = "NetworkMismatch"
	ReasonMalformedTransaction         Reason = "MalformedTransaction"
	ReasonNoTransferInstruction        Reason = "NoTransferInstruction"
	ReasonMultipleTransferInstructions Reason = "MultipleTransferInstructions"
	ReasonWrongRecipient               Reason = "WrongRecipient"
	ReasonInsufficientAmount           Reason = "InsufficientAmount"
	ReasonAmountMismatch               Reason = "AmountMismatch"
	ReasonWrongFeePayer                Reason = "WrongFeePayer"
	ReasonInvalidSignature             Reason = "InvalidSignature"
	ReasonUnexpectedSignatureCount     Reason = "UnexpectedSignatureCount"
	ReasonSimulationFailed             Reason = "SimulationFailed"
	ReasonComputeBudgetExceeded        Reason = "ComputeBudgetExceeded"
	ReasonExpired                      Reason = "Expired"
)

// Settlement reason codes.
const (
	ReasonSubmissionFailed    Reason = "SubmissionFailed"
	ReasonOnChainFailure      Reason = "OnChainFailure"
	ReasonConfirmationTimeout Reason = "ConfirmationTimeout"
)
