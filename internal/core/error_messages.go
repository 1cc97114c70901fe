package core

// # Error Codes Reference
//
// Codes are printed next to every failure so operators can look them up.
//
//	DEP000 - Database writer could not be prepared
//	DEP001 - Node URL is invalid
//	         Action: Set FIREBASE_URL (or --url) to https://<db>.firebaseio.com/<node>.json
//	DEP002 - Service account credentials unavailable
//	         Action: Set FIREBASE_CREDENTIALS_FILE to a readable service account file
//	DEP003 - Unknown backend
//	         Action: Set FIREBASE_BACKEND to rest or admin
//
//	FILE000 - Input file could not be read
//	FILE001 - File not found
//	FILE002 - File too large
//	FILE003 - Invalid JSON
//	FILE004 - Empty file
//	FILE005 - Permission denied reading the file
//
//	UPL001 - Database rejected the write (4xx, usually security rules)
//	UPL002 - Database server error (5xx)
//	UPL003 - Database unreachable (transport failure)
//	UPL004 - Read-back did not match the uploaded document
//	UPL005 - Upload timed out
//	UPL006 - Upload cancelled
//
//	ERR000 - Unknown error

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/JonMunkholm/rtdbpush/internal/rtdb"
)

// UserMessage provides operator-facing error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Error code for reference
}

// String formats the message for a console line.
func (m UserMessage) String() string {
	if m.Action == "" {
		return fmt.Sprintf("[%s] %s", m.Code, m.Message)
	}
	return fmt.Sprintf("[%s] %s. %s", m.Code, m.Message, m.Action)
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the log output for details",
	Code:    "ERR000",
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// transportPatterns classifies transport failures by their text, since the
// net and TLS packages do not expose stable error types for all of them.
// The first matching pattern wins.
var transportPatterns = []errorPattern{
	{
		pattern: "no such host",
		msg: UserMessage{
			Message: "Database host could not be resolved",
			Action:  "Check the host name in FIREBASE_URL and your DNS",
			Code:    "UPL003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Database refused the connection",
			Action:  "Check that the database or emulator is running",
			Code:    "UPL003",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Connection to the database was interrupted",
			Action:  "Run the upload again",
			Code:    "UPL003",
		},
	},
	{
		pattern: "certificate",
		msg: UserMessage{
			Message: "TLS certificate could not be verified",
			Action:  "Check the URL scheme and any intercepting proxy",
			Code:    "UPL003",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Upload timed out",
			Action:  "Raise UPLOAD_TIMEOUT or check your connection",
			Code:    "UPL005",
		},
	},
}

// MapError converts a run error into a UserMessage.
// Returns an empty UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	switch {
	case errors.Is(err, ErrDependencyUnavailable):
		return mapDependency(err)
	case errors.Is(err, ErrInputRead):
		return mapInput(err)
	case errors.Is(err, ErrUpload):
		return mapUpload(err)
	}
	return defaultMessage
}

func mapDependency(err error) UserMessage {
	switch {
	case errors.Is(err, rtdb.ErrInvalidNode):
		return UserMessage{
			Message: "Node URL is invalid",
			Action:  "Set FIREBASE_URL (or --url) to https://<db>.firebaseio.com/<node>.json",
			Code:    "DEP001",
		}
	case errors.Is(err, rtdb.ErrCredentials):
		return UserMessage{
			Message: "Service account credentials unavailable",
			Action:  "Set FIREBASE_CREDENTIALS_FILE to a readable service account file",
			Code:    "DEP002",
		}
	case errors.Is(err, rtdb.ErrUnknownBackend):
		return UserMessage{
			Message: "Unknown database backend",
			Action:  "Set FIREBASE_BACKEND to rest or admin",
			Code:    "DEP003",
		}
	}
	return UserMessage{
		Message: "Database writer could not be prepared",
		Action:  "Check the Firebase settings and try again",
		Code:    "DEP000",
	}
}

func mapInput(err error) UserMessage {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return UserMessage{
			Message: "Input file not found",
			Action:  "Check SOURCE_PATH (or --file)",
			Code:    "FILE001",
		}
	case errors.Is(err, ErrFileTooLarge):
		return UserMessage{
			Message: "Input file exceeds the size limit",
			Action:  "Raise SOURCE_MAX_FILE_SIZE or split the document",
			Code:    "FILE002",
		}
	case errors.Is(err, ErrInvalidJSON):
		return UserMessage{
			Message: "Input file is not valid JSON",
			Action:  "Fix the syntax error reported above",
			Code:    "FILE003",
		}
	case errors.Is(err, ErrEmptyFile):
		return UserMessage{
			Message: "Input file is empty",
			Action:  "Export the device inventory again",
			Code:    "FILE004",
		}
	case errors.Is(err, fs.ErrPermission):
		return UserMessage{
			Message: "Input file cannot be read",
			Action:  "Check the file permissions",
			Code:    "FILE005",
		}
	}
	return UserMessage{
		Message: "Input file could not be read",
		Action:  "Check the path and file contents",
		Code:    "FILE000",
	}
}

func mapUpload(err error) UserMessage {
	if errors.Is(err, ErrVerifyMismatch) {
		return UserMessage{
			Message: "Node content does not match the uploaded document",
			Action:  "Check for concurrent writers or rules that rewrite data",
			Code:    "UPL004",
		}
	}

	var se *rtdb.StatusError
	if errors.As(err, &se) {
		if se.ClientError() {
			return UserMessage{
				Message: "Database rejected the write",
				Action:  "Check the database rules for this node or set FIREBASE_AUTH_TOKEN",
				Code:    "UPL001",
			}
		}
		return UserMessage{
			Message: "Database server error",
			Action:  "Try again later",
			Code:    "UPL002",
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return UserMessage{
			Message: "Upload timed out",
			Action:  "Raise UPLOAD_TIMEOUT or check your connection",
			Code:    "UPL005",
		}
	case errors.Is(err, context.Canceled):
		return UserMessage{
			Message: "Upload cancelled",
			Action:  "The node may or may not have been overwritten; run again to be sure",
			Code:    "UPL006",
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, p := range transportPatterns {
		if strings.Contains(errStr, p.pattern) {
			return p.msg
		}
	}

	return UserMessage{
		Message: "Database could not be reached",
		Action:  "Check FIREBASE_URL and your network connection",
		Code:    "UPL003",
	}
}
