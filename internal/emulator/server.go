// Package emulator provides an in-memory stand-in for the Firebase Realtime
// Database REST API.
//
// It serves GET, PUT, PATCH, POST and DELETE on any path ending in .json,
// which is enough to run rtdbpush end to end without a Firebase project.
// Security rules are reduced to two switches: in read-only mode every
// write is answered with 401 "Permission denied", and when an auth token is
// set every request must carry it in the auth query parameter.
package emulator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/JonMunkholm/rtdbpush/internal/logging"
	"github.com/JonMunkholm/rtdbpush/internal/rtdb"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// MaxBodySize caps request bodies accepted by the emulator (256MB, the
// database's own limit for a single write).
var MaxBodySize int64 = 256 << 20

var errPatchNotObject = errors.New("patch body is not an object")

// Options configures a Server.
type Options struct {
	// ReadOnly rejects all writes with 401.
	ReadOnly bool
	// AuthToken, when set, must match the auth query parameter.
	AuthToken string
	// Store is the backing tree. Nil creates an empty one.
	Store *Store
}

// Server is the HTTP front of the emulator.
type Server struct {
	store    *Store
	readOnly bool
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a Server with its routes and middleware in place.
func NewServer(opts Options) *Server {
	store := opts.Store
	if store == nil {
		store = NewStore()
	}

	s := &Server{
		store:    store,
		readOnly: opts.ReadOnly,
		router:   chi.NewRouter(),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(RequestLogger)
	s.router.Use(TokenAuth(opts.AuthToken))

	s.router.Get("/*", s.handleGet)
	s.router.Put("/*", s.handleWrite(s.put))
	s.router.Patch("/*", s.handleWrite(s.patch))
	s.router.Post("/*", s.handleWrite(s.push))
	s.router.Delete("/*", s.handleWrite(s.remove))

	return s
}

// Store returns the backing store.
func (s *Server) Store() *Store {
	return s.store
}

// Handler returns the router, for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// nodePath extracts the node segments from a request path.
// ok is false when the path lacks the .json suffix.
func nodePath(r *http.Request) ([]string, bool) {
	p := r.URL.Path
	if !strings.HasSuffix(p, ".json") {
		return nil, false
	}
	return SplitPath(strings.TrimSuffix(p, ".json")), true
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	path, ok := nodePath(r)
	if !ok {
		writeError(w, r, http.StatusNotFound, "Not Found")
		return
	}
	writeJSON(w, r, http.StatusOK, s.store.Get(path))
}

type writeFunc func(path []string, body any) (any, error)

// handleWrite applies the shared checks of every mutating method before
// handing the decoded body to fn.
func (s *Server) handleWrite(fn writeFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path, ok := nodePath(r)
		if !ok {
			writeError(w, r, http.StatusNotFound, "Not Found")
			return
		}
		if s.readOnly {
			writeError(w, r, http.StatusUnauthorized, "Permission denied")
			return
		}

		var body any
		if r.Method != http.MethodDelete {
			data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					writeError(w, r, http.StatusRequestEntityTooLarge, "Request body too large")
					return
				}
				writeError(w, r, http.StatusBadRequest, "Could not read request body")
				return
			}
			body, err = rtdb.Decode(data)
			if err != nil {
				writeError(w, r, http.StatusBadRequest, "Invalid data; couldn't parse JSON object, array, or value.")
				return
			}
		}

		result, err := fn(path, body)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, wireMessage(err))
			return
		}
		writeJSON(w, r, http.StatusOK, result)
	}
}

func (s *Server) put(path []string, body any) (any, error) {
	s.store.Set(path, body)
	return rtdb.Normalize(body), nil
}

func (s *Server) patch(path []string, body any) (any, error) {
	children, ok := body.(map[string]any)
	if !ok {
		return nil, errPatchNotObject
	}
	if err := s.store.Update(path, children); err != nil {
		return nil, err
	}
	return rtdb.Normalize(children), nil
}

func (s *Server) push(path []string, body any) (any, error) {
	key := "-" + uuid.NewString()
	s.store.Set(append(path, key), body)
	return map[string]string{"name": key}, nil
}

func (s *Server) remove(path []string, _ any) (any, error) {
	s.store.Delete(path)
	return nil, nil
}

// wireMessage returns the error text the database sends for a rejected write.
func wireMessage(err error) string {
	switch {
	case errors.Is(err, errPatchNotObject):
		return "Invalid data; couldn't parse JSON object. PATCH requires an object."
	case errors.Is(err, ErrEmptyKey):
		return "Invalid data; couldn't parse key beginning at 1. Key must not be empty."
	default:
		return "Invalid data"
	}
}

// writeJSON encodes v, honouring print=silent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	if r.URL.Query().Get("print") == "silent" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}

// writeError writes the database's {"error": "..."} body.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	logging.FromContext(r.Context()).Debug("request rejected", "status", status, "error", message)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
