package session

// messages.go maps errors to user-facing messages with a support code.
//
// # Error Codes Reference
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: the export exceeds server.max_upload_bytes
//	          Action: Export a smaller date range or split the file
//
//	FILE002 - No records: no lot lines were found in the export
//	          Action: Check the file format
//
//	FILE003 - Read failure: the uploaded file could not be read
//	          Action: Upload the file again
//
//	FILE004 - No file: the upload request carried no file
//	          Action: Select an export file to upload
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Session not found: the session expired or was reset
//	         Action: Upload the export again
//
// # Row Errors (ROW001-ROW099)
//
//	ROW001 - Row range: the row index or count does not fit the grid
//	ROW002 - Unknown field: the column id is not a grid column
//	ROW003 - Read-only field: CT WT is computed and cannot be edited
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: check the logs for the technical error

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ginjaninja78/diamond-metrics/internal/engine"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// NoRecordsMessage is shown when an upload yields no lots.
const NoRecordsMessage = "No diamond data found in the uploaded file. Please check the file format."

type errorMatch struct {
	target error
	msg    UserMessage
}

// Sentinel errors are matched with errors.Is, first match wins.
var errorMatches = []errorMatch{
	{ErrFileTooLarge, UserMessage{
		Message: "The uploaded file is too large",
		Action:  "Export a smaller date range or split the file",
		Code:    "FILE001",
	}},
	{ErrNoRecords, UserMessage{
		Message: NoRecordsMessage,
		Action:  "Upload a stock export that contains Diamond lot lines",
		Code:    "FILE002",
	}},
	{ErrReadFailed, UserMessage{
		Message: "The uploaded file could not be read",
		Action:  "Please upload the file again",
		Code:    "FILE003",
	}},
	{ErrNoFile, UserMessage{
		Message: "No file was selected",
		Action:  "Please select an export file to upload",
		Code:    "FILE004",
	}},
	{ErrSessionNotFound, UserMessage{
		Message: "Upload session not found",
		Action:  "The session may have expired. Please upload the file again",
		Code:    "SES001",
	}},
	{engine.ErrEmptyInsert, UserMessage{
		Message: "There are no rows to insert",
		Action:  "Insert at least one row",
		Code:    "ROW001",
	}},
	{engine.ErrRowRange, UserMessage{
		Message: "The row is outside the grid",
		Action:  "Reload the grid and try again",
		Code:    "ROW001",
	}},
	{engine.ErrUnknownField, UserMessage{
		Message: "That column does not exist",
		Action:  "Reload the grid and try again",
		Code:    "ROW002",
	}},
	{engine.ErrReadOnlyField, UserMessage{
		Message: "CT WT is calculated and cannot be edited",
		Action:  "Edit AVRG WT or PCS instead",
		Code:    "ROW003",
	}},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, m := range errorMatches {
		if errors.Is(err, m.target) {
			return m.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates "Message (Code: XXX). Action" for display.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, strings.TrimSuffix(msg.Action, "."))
}

// IsUserFacing reports whether err maps to a specific message.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
