package rtdb

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// RESTOptions configures a RESTWriter.
type RESTOptions struct {
	// AuthToken is sent as the auth query parameter when set.
	AuthToken string
	// HTTPClient overrides the underlying transport.
	HTTPClient *http.Client
}

// RESTWriter writes a node through the Realtime Database REST API.
type RESTWriter struct {
	client    *resty.Client
	node      Node
	authToken string
}

// NewRESTWriter creates a writer for node.
func NewRESTWriter(node Node, opts RESTOptions) *RESTWriter {
	var client *resty.Client
	if opts.HTTPClient != nil {
		client = resty.NewWithClient(opts.HTTPClient)
	} else {
		client = resty.New()
	}
	client.SetHeader("Accept", "application/json")

	return &RESTWriter{
		client:    client,
		node:      node,
		authToken: opts.AuthToken,
	}
}

// Put issues PUT <node>.json with body as the request payload.
func (w *RESTWriter) Put(ctx context.Context, body []byte) error {
	resp, err := w.request(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Put(w.node.RESTURL())
	if err != nil {
		return fmt.Errorf("put %s: %w", w.node, err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("put %s: %w", w.node, newStatusError(resp.StatusCode(), resp.Status(), resp.Body()))
	}
	return nil
}

// Get issues GET <node>.json and returns the raw body.
func (w *RESTWriter) Get(ctx context.Context) ([]byte, error) {
	resp, err := w.request(ctx).Get(w.node.RESTURL())
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", w.node, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("get %s: %w", w.node, newStatusError(resp.StatusCode(), resp.Status(), resp.Body()))
	}
	return resp.Body(), nil
}

func (w *RESTWriter) request(ctx context.Context) *resty.Request {
	req := w.client.R().SetContext(ctx)
	if w.authToken != "" {
		req.SetQueryParam("auth", w.authToken)
	}
	return req
}

// Node returns the target node.
func (w *RESTWriter) Node() Node { return w.node }

// Backend returns "rest".
func (w *RESTWriter) Backend() string { return BackendREST }
