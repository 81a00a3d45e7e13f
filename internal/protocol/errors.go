package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// Error types for device protocol operations

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNotConnected indicates the operation requires a live, authenticated session
	ErrTypeNotConnected ErrorType = iota
	// ErrTypeValidation indicates a caller-supplied value outside the protocol-legal range
	ErrTypeValidation
	// ErrTypeTimeout indicates no matching response arrived within the allotted window
	ErrTypeTimeout
	// ErrTypeTransferAborted indicates a ringtone upload was aborted
	ErrTypeTransferAborted
	// ErrTypeConnection indicates a single connect attempt failed at the transport
	ErrTypeConnection
	// ErrTypeParse indicates an inbound frame could not be decoded
	ErrTypeParse
	// ErrTypeCancelled indicates a pending wait was superseded by a newer one
	ErrTypeCancelled
	// ErrTypeTransport indicates a characteristic write or subscribe failed
	ErrTypeTransport
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNotConnected:
		return "Not Connected"
	case ErrTypeValidation:
		return "Validation Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeTransferAborted:
		return "Transfer Aborted"
	case ErrTypeConnection:
		return "Connection Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeCancelled:
		return "Cancelled"
	case ErrTypeTransport:
		return "Transport Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// TimeoutPhase distinguishes which wait timed out
type TimeoutPhase int

const (
	PhaseNone TimeoutPhase = iota
	PhaseConnect
	PhaseResponse
	PhaseAck
)

func (p TimeoutPhase) String() string {
	switch p {
	case PhaseConnect:
		return "connect"
	case PhaseResponse:
		return "response"
	case PhaseAck:
		return "ack"
	default:
		return "none"
	}
}

// TransferStage identifies where an upload stopped
type TransferStage int

const (
	StageNone TransferStage = iota
	StageInit
	StageInitAck
	StageData
	StageBlockAck
)

func (s TransferStage) String() string {
	switch s {
	case StageInit:
		return "init"
	case StageInitAck:
		return "init-ack"
	case StageData:
		return "data"
	case StageBlockAck:
		return "block-ack"
	default:
		return "none"
	}
}

// DeviceError represents an error that occurred while talking to the clock
type DeviceError struct {
	Type    ErrorType     // Category of error
	Message string        // Human-readable error message
	Phase   TimeoutPhase  // Which wait timed out (ErrTypeTimeout only)
	Stage   TransferStage // Where the upload stopped (ErrTypeTransferAborted only)
	Block   int           // Zero-based block index for StageData/StageBlockAck
	Err     error         // Underlying error (if any)
}

// Error implements the error interface
func (e *DeviceError) Error() string {
	prefix := e.Type.String()
	switch e.Type {
	case ErrTypeTimeout:
		prefix = fmt.Sprintf("%s (%s)", prefix, e.Phase)
	case ErrTypeTransferAborted:
		prefix = fmt.Sprintf("%s (%s)", prefix, e.Stage)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// NewNotConnectedError creates an error for operations attempted without a session
func NewNotConnectedError(message string) *DeviceError {
	return &DeviceError{Type: ErrTypeNotConnected, Message: message}
}

// NewValidationError creates a validation error
func NewValidationError(message string) *DeviceError {
	return &DeviceError{Type: ErrTypeValidation, Message: message}
}

// NewTimeoutError creates a timeout error for the given phase
func NewTimeoutError(phase TimeoutPhase, message string, err error) *DeviceError {
	return &DeviceError{Type: ErrTypeTimeout, Phase: phase, Message: message, Err: err}
}

// NewTransferError creates an upload abort error carrying the failing stage
func NewTransferError(stage TransferStage, block int, err error) *DeviceError {
	msg := fmt.Sprintf("upload aborted during %s", stage)
	if stage == StageData || stage == StageBlockAck {
		msg = fmt.Sprintf("upload aborted during %s of block %d", stage, block)
	}
	return &DeviceError{Type: ErrTypeTransferAborted, Stage: stage, Block: block, Message: msg, Err: err}
}

// NewConnectionError creates an error for a failed connect attempt
func NewConnectionError(message string, err error) *DeviceError {
	return &DeviceError{Type: ErrTypeConnection, Message: message, Err: err}
}

// NewTransportError creates an error for a failed write or subscribe
func NewTransportError(message string, err error) *DeviceError {
	return &DeviceError{Type: ErrTypeTransport, Message: message, Err: err}
}

// NewParseError creates a parsing error
func NewParseError(message string) *DeviceError {
	return &DeviceError{Type: ErrTypeParse, Message: message}
}

// NewCancelledError creates the error observed by a superseded waiter
func NewCancelledError(message string) *DeviceError {
	return &DeviceError{Type: ErrTypeCancelled, Message: message}
}

func errorType(err error) (ErrorType, bool) {
	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return devErr.Type, true
	}
	return 0, false
}

// IsNotConnected checks if an error is a not-connected error
func IsNotConnected(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeNotConnected
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeValidation
}

// IsTimeout checks if an error is, or was caused by, a timeout of any phase
func IsTimeout(err error) bool {
	return findTimeout(err) != nil
}

// IsTimeoutPhase checks if an error is, or was caused by, a timeout of the
// given phase
func IsTimeoutPhase(err error, phase TimeoutPhase) bool {
	t := findTimeout(err)
	return t != nil && t.Phase == phase
}

// findTimeout walks the cause chain, so an aborted upload still reports the
// ack timeout behind it
func findTimeout(err error) *DeviceError {
	var devErr *DeviceError
	for errors.As(err, &devErr) {
		if devErr.Type == ErrTypeTimeout {
			return devErr
		}
		err = devErr.Err
	}
	return nil
}

// IsTransferAborted checks if an error aborted an upload
func IsTransferAborted(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeTransferAborted
}

// IsCancelled checks if a wait was superseded
func IsCancelled(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeCancelled
}

// IsRetryable reports whether a connect loop should try again after err.
// Validation and parse errors are never retried.
func IsRetryable(err error) bool {
	t, ok := errorType(err)
	if !ok {
		return false
	}
	return t == ErrTypeConnection || t == ErrTypeNotConnected
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		return err.Error()
	}

	switch devErr.Type {
	case ErrTypeNotConnected:
		return "Not connected to the clock"
	case ErrTypeTimeout:
		switch devErr.Phase {
		case PhaseConnect:
			return "Could not connect to the clock (timeout)"
		case PhaseAck:
			return "Clock did not acknowledge the transfer (timeout)"
		default:
			return "Clock did not respond (timeout)"
		}
	case ErrTypeTransferAborted:
		return fmt.Sprintf("Ringtone upload aborted at %s", devErr.Stage)
	case ErrTypeConnection:
		return "Connection attempt failed"
	case ErrTypeTransport:
		return "Bluetooth write failed"
	default:
		return devErr.Message
	}
}

// GetTroubleshootingHint returns user-friendly troubleshooting advice for an error
func GetTroubleshootingHint(err error) string {
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		return "An unexpected error occurred. Please try again."
	}

	switch devErr.Type {
	case ErrTypeTimeout, ErrTypeConnection, ErrTypeTransport:
		return strings.Join([]string{
			"The clock did not respond in time.",
			"Troubleshooting:",
			"  • Make sure the clock is awake and within range",
			"  • Close the vendor app, the clock accepts one session at a time",
			"  • Check that the Bluetooth adapter is powered on",
			"  • Verify the address and token in the config file",
		}, "\n")

	case ErrTypeTransferAborted:
		return strings.Join([]string{
			"The ringtone transfer stopped before it completed.",
			"Troubleshooting:",
			"  • Keep the clock close to the adapter during uploads",
			"  • Retry the upload; the target slot is simply overwritten",
		}, "\n")

	case ErrTypeValidation:
		return "One of the provided values is out of range. Check the error message for details."

	case ErrTypeNotConnected:
		return "Connect to the clock first."

	default:
		return "An error occurred. Please check the error message for details."
	}
}
