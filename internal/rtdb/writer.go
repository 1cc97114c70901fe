package rtdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Backend names.
const (
	BackendREST  = "rest"
	BackendAdmin = "admin"
)

var (
	// ErrInvalidNode is returned when the node URL cannot be used.
	ErrInvalidNode = errors.New("invalid node url")
	// ErrCredentials is returned when admin credentials are missing or unreadable.
	ErrCredentials = errors.New("credentials unavailable")
	// ErrUnknownBackend is returned for a backend name other than rest or admin.
	ErrUnknownBackend = errors.New("unknown backend")
)

// Writer replaces the contents of a single node.
type Writer interface {
	// Put overwrites the node with the JSON document in body.
	Put(ctx context.Context, body []byte) error
	// Get returns the node's current contents as JSON.
	Get(ctx context.Context) ([]byte, error)
	// Node returns the node this writer targets.
	Node() Node
	// Backend returns the backend name.
	Backend() string
}

// Options selects and configures a Writer.
type Options struct {
	Backend         string
	URL             string
	CredentialsFile string
	ProjectID       string
	AuthToken       string

	// HTTPClient overrides the REST transport. Nil uses resty's default.
	HTTPClient *http.Client
}

// New builds the writer for opts.Backend.
func New(ctx context.Context, opts Options) (Writer, error) {
	node, err := ParseNode(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNode, err)
	}

	switch strings.ToLower(opts.Backend) {
	case "", BackendREST:
		return NewRESTWriter(node, RESTOptions{
			AuthToken:  opts.AuthToken,
			HTTPClient: opts.HTTPClient,
		}), nil
	case BackendAdmin:
		return NewAdminWriter(ctx, node, AdminOptions{
			CredentialsFile: opts.CredentialsFile,
			ProjectID:       opts.ProjectID,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

// StatusError is returned when the database answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
	// Message is the database's error field when the body carries one.
	Message string
	Body    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("database returned %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("database returned %s", e.Status)
}

// ClientError reports whether the database rejected the request (4xx).
func (e *StatusError) ClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

func newStatusError(code int, status string, body []byte) *StatusError {
	if status == "" {
		status = fmt.Sprintf("%d %s", code, http.StatusText(code))
	}
	se := &StatusError{StatusCode: code, Status: status, Body: string(body)}

	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		se.Message = payload.Error
	}
	return se
}
