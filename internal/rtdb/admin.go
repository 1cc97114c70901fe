package rtdb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"
)

// AdminOptions configures an AdminWriter.
type AdminOptions struct {
	CredentialsFile string
	ProjectID       string
}

// AdminWriter writes a node through the Firebase Admin SDK.
type AdminWriter struct {
	ref  *db.Ref
	node Node
}

// NewAdminWriter initialises a Firebase app for node's database and returns
// a writer bound to the node reference.
func NewAdminWriter(ctx context.Context, node Node, opts AdminOptions) (*AdminWriter, error) {
	if opts.CredentialsFile == "" {
		return nil, fmt.Errorf("%w: no service account file configured", ErrCredentials)
	}
	if _, err := os.Stat(opts.CredentialsFile); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCredentials, err)
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{
		DatabaseURL: node.BaseURL,
		ProjectID:   opts.ProjectID,
	}, option.WithCredentialsFile(opts.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}

	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("init database client: %w", err)
	}

	return &AdminWriter{
		ref:  client.NewRef(node.RefPath()),
		node: node,
	}, nil
}

// Put sets the node to body. The document is passed through as raw JSON.
func (w *AdminWriter) Put(ctx context.Context, body []byte) error {
	if err := w.ref.Set(ctx, json.RawMessage(body)); err != nil {
		return fmt.Errorf("set %s: %w", w.node, err)
	}
	return nil
}

// Get reads the node back as raw JSON.
func (w *AdminWriter) Get(ctx context.Context) ([]byte, error) {
	var raw json.RawMessage
	if err := w.ref.Get(ctx, &raw); err != nil {
		return nil, fmt.Errorf("get %s: %w", w.node, err)
	}
	return raw, nil
}

// Node returns the target node.
func (w *AdminWriter) Node() Node { return w.node }

// Backend returns "admin".
func (w *AdminWriter) Backend() string { return BackendAdmin }
