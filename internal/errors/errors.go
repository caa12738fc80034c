package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for fatal failure modes.
// Recoverable failures are reported as degradations, not errors.
type ErrorCode string

const (
	// ConfigInvalid indicates a configuration value failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// ModelMissing indicates the project model document was not found
	ModelMissing ErrorCode = "MODEL_MISSING"
	// ModelInvalid indicates the project model document could not be parsed
	ModelInvalid ErrorCode = "MODEL_INVALID"
	// MetadataMissing indicates the intermediate metadata document was not found
	MetadataMissing ErrorCode = "METADATA_MISSING"
	// TemplateMissing indicates an embedded template resource is absent
	TemplateMissing ErrorCode = "TEMPLATE_MISSING"
	// GradleFailed indicates the Gradle model export could not run or failed
	GradleFailed ErrorCode = "GRADLE_FAILED"
	// Locked indicates another generation run holds the build directory
	Locked ErrorCode = "LOCKED"
	// IOFailure indicates a required file could not be read or written
	IOFailure ErrorCode = "IO_FAILURE"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Command     string `json:"command,omitempty"`
	Description string `json:"description,omitempty"`
}

// LspwsError represents a fatal error with a stable code and suggestions
type LspwsError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error
}

// New creates a new LspwsError. Suggested fixes are filled in from
// ErrorActions for the code.
func New(code ErrorCode, message string, cause error) *LspwsError {
	return &LspwsError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Error implements the error interface
func (e *LspwsError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *LspwsError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *LspwsError) WithDetails(details interface{}) *LspwsError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first LspwsError in err's chain, or
// InternalError when there is none.
func CodeOf(err error) ErrorCode {
	var le *LspwsError
	if errors.As(err, &le) {
		return le.Code
	}
	return InternalError
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	var le *LspwsError
	return errors.As(err, &le) && le.Code == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	ModelMissing: {
		{
			Command:     "lspws sync",
			Description: "Export the Gradle project model and regenerate",
		},
		{
			Command:     "lspws init-script && ./gradlew --init-script build/lsp-model.init.gradle lspwsExportModel",
			Description: "Export the Gradle project model",
		},
	},
	MetadataMissing: {
		{
			Command:     "lspws process",
			Description: "Resolve dependencies and write lsp-metadata.json",
		},
	},
	GradleFailed: {
		{
			Command:     "lspws sync --no-export",
			Description: "Regenerate from the last exported model",
		},
	},
	Locked: {
		{
			Command:     "lspws doctor",
			Description: "Wait for the other run to finish; a lock left by a killed process is released with it",
		},
	},
	ConfigInvalid: {
		{
			Command:     "lspws config show",
			Description: "Inspect the effective configuration",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
