package filebookModel

// TurnStep traces how far a question got. Only the terminal step is logged.
type TurnStep string

const (
	StepReceived         TurnStep = "RECEIVED"
	StepLimitChecked     TurnStep = "LIMIT_CHECKED"
	StepEmbedded         TurnStep = "EMBEDDED"
	StepRetrieved        TurnStep = "RETRIEVED"
	StepContextAssembled TurnStep = "CONTEXT_ASSEMBLED"
	StepModelInvoked     TurnStep = "MODEL_INVOKED"
	StepStreaming        TurnStep = "STREAMING"
	StepPersisted        TurnStep = "PERSISTED"
)
