package emulator

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, srv *httptest.Server, method, path, body string) (int, string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, r)
	require.NoError(t, err)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, strings.TrimSpace(string(data))
}

func newTestServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(opts)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

func TestServer_PutReplacesNode(t *testing.T) {
	_, srv := newTestServer(t, Options{})

	status, _ := do(t, srv, http.MethodPut, "/medical_devices.json", `{"a":{"name":"ECG"},"b":{"name":"Pump"}}`)
	require.Equal(t, http.StatusOK, status)

	status, _ = do(t, srv, http.MethodPut, "/medical_devices.json", `{"c":{"name":"Monitor"}}`)
	require.Equal(t, http.StatusOK, status)

	status, body := do(t, srv, http.MethodGet, "/medical_devices.json", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"c":{"name":"Monitor"}}`, body)
}

func TestServer_PatchMergesChildren(t *testing.T) {
	_, srv := newTestServer(t, Options{})

	do(t, srv, http.MethodPut, "/devices.json", `{"a":{"qty":1},"b":{"qty":2}}`)
	status, _ := do(t, srv, http.MethodPatch, "/devices.json", `{"b":{"qty":5},"c/qty":7}`)
	require.Equal(t, http.StatusOK, status)

	_, body := do(t, srv, http.MethodGet, "/devices.json", "")
	assert.JSONEq(t, `{"a":{"qty":1},"b":{"qty":5},"c":{"qty":7}}`, body)
}

func TestServer_PatchRequiresObject(t *testing.T) {
	_, srv := newTestServer(t, Options{})

	status, body := do(t, srv, http.MethodPatch, "/devices.json", `[1,2]`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "PATCH requires an object")
}

func TestServer_ArraysRoundTrip(t *testing.T) {
	_, srv := newTestServer(t, Options{})

	do(t, srv, http.MethodPut, "/list.json", `[{"id":1},{"id":2},{"id":3}]`)

	_, body := do(t, srv, http.MethodGet, "/list.json", "")
	assert.JSONEq(t, `[{"id":1},{"id":2},{"id":3}]`, body)

	_, body = do(t, srv, http.MethodGet, "/list/1/id.json", "")
	assert.Equal(t, "2", body)
}

func TestServer_DeleteAndMissing(t *testing.T) {
	_, srv := newTestServer(t, Options{})

	do(t, srv, http.MethodPut, "/a/b.json", `"x"`)
	status, body := do(t, srv, http.MethodDelete, "/a/b.json", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "null", body)

	_, body = do(t, srv, http.MethodGet, "/a.json", "")
	assert.Equal(t, "null", body)
}

func TestServer_PushGeneratesKey(t *testing.T) {
	s, srv := newTestServer(t, Options{})

	status, body := do(t, srv, http.MethodPost, "/log.json", `{"event":"upload"}`)
	require.Equal(t, http.StatusOK, status)

	var resp struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	require.NotEmpty(t, resp.Name)

	got := s.Store().Get([]string{"log", resp.Name, "event"})
	assert.Equal(t, "upload", got)
}

func TestServer_Errors(t *testing.T) {
	tests := []struct {
		name       string
		opts       Options
		method     string
		path       string
		body       string
		wantStatus int
		wantError  string
	}{
		{
			name:       "missing .json suffix",
			method:     http.MethodGet,
			path:       "/devices",
			wantStatus: http.StatusNotFound,
			wantError:  "Not Found",
		},
		{
			name:       "invalid json",
			method:     http.MethodPut,
			path:       "/devices.json",
			body:       `{"a":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid data",
		},
		{
			name:       "read only",
			opts:       Options{ReadOnly: true},
			method:     http.MethodPut,
			path:       "/devices.json",
			body:       `{}`,
			wantStatus: http.StatusUnauthorized,
			wantError:  "Permission denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, srv := newTestServer(t, tt.opts)

			status, body := do(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, status)

			var resp struct {
				Error string `json:"error"`
			}
			require.NoError(t, json.Unmarshal([]byte(body), &resp))
			assert.Contains(t, resp.Error, tt.wantError)
		})
	}
}

func TestServer_PrintSilent(t *testing.T) {
	_, srv := newTestServer(t, Options{})

	status, body := do(t, srv, http.MethodPut, "/devices.json?print=silent", `{"a":1}`)
	assert.Equal(t, http.StatusNoContent, status)
	assert.Empty(t, body)
}

func TestServer_TokenAuth(t *testing.T) {
	_, srv := newTestServer(t, Options{AuthToken: "s3cret"})

	status, body := do(t, srv, http.MethodPut, "/devices.json", `{"a":1}`)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.JSONEq(t, `{"error":"Permission denied"}`, body)

	status, _ = do(t, srv, http.MethodPut, "/devices.json?auth=wrong", `{"a":1}`)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = do(t, srv, http.MethodPut, "/devices.json?auth=s3cret", `{"a":1}`)
	require.Equal(t, http.StatusOK, status)

	status, body = do(t, srv, http.MethodGet, "/devices.json?auth=s3cret", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"a":1}`, body)
}

func TestServer_PatchRejectsEmptyKey(t *testing.T) {
	_, srv := newTestServer(t, Options{})
	do(t, srv, http.MethodPut, "/devices.json", `{"a":1,"b":2}`)

	status, body := do(t, srv, http.MethodPatch, "/devices.json", `{"":"x"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "Key must not be empty")

	_, body = do(t, srv, http.MethodGet, "/devices.json", "")
	assert.JSONEq(t, `{"a":1,"b":2}`, body)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset by peer") }

func TestServer_BodyReadErrors(t *testing.T) {
	s := NewServer(Options{})

	t.Run("too large", func(t *testing.T) {
		old := MaxBodySize
		MaxBodySize = 8
		t.Cleanup(func() { MaxBodySize = old })

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/devices.json", strings.NewReader(`{"a":"0123456789"}`))
		s.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("read failure", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/devices.json", failingReader{})
		s.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Could not read request body")
	})
}
