package models

import "encoding/json"

// ResultStatus is the status tag carried by every CommandResult.
// Exactly one tag is set per result.
type ResultStatus string

const (
	ResultSuccess   ResultStatus = "success"
	ResultError     ResultStatus = "error"
	ResultStarted   ResultStatus = "started"
	ResultCancelled ResultStatus = "cancelled"
	ResultPending   ResultStatus = "pending"
)

// Command is a named request from the UI layer. Args are command-specific
// and validated by the bridge before dispatch.
type Command struct {
	Name string          `json:"command"`
	Args json.RawMessage `json:"args,omitempty"`
}

// CommandResult is the uniform envelope returned for every command.
// Payload is present only on success.
type CommandResult struct {
	Status  ResultStatus `json:"status"`
	Message string       `json:"message,omitempty"`
	Payload interface{}  `json:"payload,omitempty"`
}

// SuccessResult builds a success envelope with an optional payload.
func SuccessResult(message string, payload interface{}) CommandResult {
	return CommandResult{Status: ResultSuccess, Message: message, Payload: payload}
}

// ErrorResult builds an error envelope from a message.
func ErrorResult(message string) CommandResult {
	return CommandResult{Status: ResultError, Message: message}
}

// StartedResult acknowledges an async operation that is now in flight.
func StartedResult(message string) CommandResult {
	return CommandResult{Status: ResultStarted, Message: message}
}

// CancelledResult acknowledges a cancellation request.
func CancelledResult(message string) CommandResult {
	return CommandResult{Status: ResultCancelled, Message: message}
}

// PendingResult reports that no data is available yet.
func PendingResult(message string) CommandResult {
	return CommandResult{Status: ResultPending, Message: message}
}
