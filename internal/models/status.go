package models

/*
Phase and error kind constants shared by the orchestrator, the session and the
HTTP surface. Values are lower-case to match the JSON the local API serves.
*/

// Phase is one state of the client state machine.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseWakingUp  Phase = "waking_up"
	PhaseAnalyzing Phase = "analyzing"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// Busy reports whether a submission is in flight in this phase.
func (p Phase) Busy() bool {
	return p == PhaseWakingUp || p == PhaseAnalyzing
}

// ErrorKind is the closed set of failure categories.
type ErrorKind string

const (
	KindTimeout             ErrorKind = "timeout"
	KindNetworkUnreachable  ErrorKind = "network_unreachable"
	KindServerRejected      ErrorKind = "server_rejected"
	KindServerReportedError ErrorKind = "server_reported_error"
	KindEmptyResult         ErrorKind = "empty_result"
	KindUnknown             ErrorKind = "unknown"
)

// Stage is reported by the orchestrator as it moves through a submission.
type Stage string

const (
	StageWakingUp  Stage = "waking_up"
	StageAnalyzing Stage = "analyzing"
)
