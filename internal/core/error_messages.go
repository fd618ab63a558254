// Package core provides the conversion pipeline.
//
// # Error Codes Reference
//
// User-facing errors carry a code so a user can quote it to support.
// Sentinel errors from the pipeline packages are matched with errors.Is
// first; anything else falls back to case-insensitive substring patterns.
//
// # Archive Errors (ARC001-ARC099)
//
//	ARC001 - Corrupt archive: The archive could not be opened or is empty
//	         Action: Re-create the zip or tar file and upload it again
//	         Sentinel: decompress.ErrCorruptArchive
//
//	ARC002 - Decompression failed: The compressed file is damaged
//	         Action: Check the file was fully downloaded, or upload it uncompressed
//	         Sentinel: decompress.ErrDecompression
//
//	ARC003 - Payload too large: The file is too large once decompressed
//	         Action: Split the data into smaller files
//	         Sentinel: decompress.ErrPayloadTooLarge
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: Upload exceeds the maximum size
//	          Action: Compress the file or split it
//	          Patterns: "file too large", "request body too large"
//
//	FILE002 - Unreadable table: No consistent delimiter or not text
//	          Action: Upload comma, tab, semicolon or pipe separated text
//	          Sentinel: table.ErrUnparsableFormat
//
//	FILE004 - No file: No file was selected
//	          Action: Choose a file to upload
//	          Patterns: "no file provided"
//
//	FILE005 - Empty file: The uploaded file has no content
//	          Action: Upload a file with a header row
//	          Sentinel: table.ErrEmptyInput
//
// # Export Errors (EXP001-EXP099)
//
//	EXP001 - Unsupported export: Format and compression cannot be combined
//	         Action: Pick another compression for this format
//	         Sentinel: table.ErrUnsupportedCombination
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy: Too many conversions in progress
//	         Action: Wait a moment and try again
//	         Sentinel: ErrTooManyConversions
//
//	UPL003 - Conversion expired: The conversion session is gone
//	         Action: Upload the file again
//	         Sentinel: ErrConversionNotFound
//
//	UPL004 - Request cancelled
//	         Sentinel: context.Canceled
//
//	UPL005 - Request timeout
//	         Sentinel: context.DeadlineExceeded
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check the application log, keyed by request
// id, for the underlying error.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/betaconv/internal/decompress"
	"github.com/JonMunkholm/betaconv/internal/table"
)

// ErrConversionNotFound is returned when a conversion id is unknown or has
// expired.
var ErrConversionNotFound = errors.New("conversion not found")

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type sentinelMessage struct {
	err error
	msg UserMessage
}

// sentinelMessages is checked in order with errors.Is, so wrapped sentinels
// (ErrEmptyInput wraps ErrUnparsableFormat) must precede the ones they wrap.
var sentinelMessages = []sentinelMessage{
	{
		err: decompress.ErrPayloadTooLarge,
		msg: UserMessage{
			Message: "The file is too large once decompressed",
			Action:  "Split the data into smaller files",
			Code:    "ARC003",
		},
	},
	{
		err: decompress.ErrCorruptArchive,
		msg: UserMessage{
			Message: "The archive could not be opened or is empty",
			Action:  "Re-create the zip or tar file and upload it again",
			Code:    "ARC001",
		},
	},
	{
		err: decompress.ErrDecompression,
		msg: UserMessage{
			Message: "The compressed file is damaged",
			Action:  "Check the file was fully downloaded, or upload it uncompressed",
			Code:    "ARC002",
		},
	},
	{
		err: table.ErrEmptyInput,
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Upload a file with a header row",
			Code:    "FILE005",
		},
	},
	{
		err: table.ErrUnparsableFormat,
		msg: UserMessage{
			Message: "The file could not be read as a table",
			Action:  "Upload comma, tab, semicolon or pipe separated text",
			Code:    "FILE002",
		},
	},
	{
		err: table.ErrUnsupportedCombination,
		msg: UserMessage{
			Message: "That format and compression cannot be combined",
			Action:  "Pick another compression for this format",
			Code:    "EXP001",
		},
	},
	{
		err: ErrTooManyConversions,
		msg: UserMessage{
			Message: "System is busy processing other conversions",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		err: ErrConversionNotFound,
		msg: UserMessage{
			Message: "Conversion not found",
			Action:  "It may have expired. Please upload the file again",
			Code:    "UPL003",
		},
	},
	{
		err: context.Canceled,
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		err: context.DeadlineExceeded,
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL005",
		},
	},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns covers errors that arrive as plain strings, mostly from
// net/http and the rate limiter. First match wins.
var errorPatterns = []errorPattern{
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Compress the file or split it",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Compress the file or split it",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Choose a file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Known sentinels win over string patterns; ERR000 is the fallback.
//
// Example:
//
//	_, err := decompress.Resolve(data, "x.gz")
//	msg := MapError(err)
//	// msg.Code == "ARC002"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
// The technical error stays reachable through Unwrap for logging.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
