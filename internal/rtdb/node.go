// Package rtdb writes JSON documents to Firebase Realtime Database nodes.
//
// Two writers are provided. The REST writer issues a plain HTTP PUT against
// the node's .json endpoint and relies on the database rules allowing the
// write. The Admin writer goes through the Firebase Admin SDK with a service
// account. Both replace everything at and beneath the node.
package rtdb

import (
	"fmt"
	"net/url"
	"strings"
)

const restSuffix = ".json"

// Node addresses one location in a Realtime Database.
type Node struct {
	// BaseURL is the database origin, e.g. https://app-default-rtdb.firebaseio.com
	BaseURL string
	// Path is the slash-separated node path without leading slash or
	// .json suffix. The root node is "".
	Path string
	// Query is carried over to REST requests (for example ns=<db> on the emulator).
	Query url.Values
}

// ParseNode parses a node URL such as
// https://app-default-rtdb.firebaseio.com/medical_devices.json.
// The .json suffix is optional.
func ParseNode(raw string) (Node, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Node{}, fmt.Errorf("invalid node url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Node{}, fmt.Errorf("invalid node url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return Node{}, fmt.Errorf("invalid node url %q: missing host", raw)
	}

	p := strings.Trim(u.Path, "/")
	p = strings.TrimSuffix(p, restSuffix)
	p = strings.Trim(p, "/")

	return Node{
		BaseURL: u.Scheme + "://" + u.Host,
		Path:    p,
		Query:   u.Query(),
	}, nil
}

// RESTURL returns the REST endpoint for the node.
func (n Node) RESTURL() string {
	s := n.BaseURL + "/" + n.Path
	if n.Path == "" {
		s = n.BaseURL + "/"
	}
	s += restSuffix
	if len(n.Query) > 0 {
		s += "?" + n.Query.Encode()
	}
	return s
}

// RefPath returns the node path in the form the Admin SDK expects.
func (n Node) RefPath() string {
	return "/" + n.Path
}

// String returns the node URL without query parameters.
func (n Node) String() string {
	if n.Path == "" {
		return n.BaseURL + "/"
	}
	return n.BaseURL + "/" + n.Path
}
