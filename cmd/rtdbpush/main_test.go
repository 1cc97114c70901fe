package main

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/JonMunkholm/rtdbpush/internal/emulator"
	"github.com/JonMunkholm/rtdbpush/internal/rtdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const devices = `{
  "dev-001": {"id": 1, "deviceName": "Infusion Pump", "quantity": 2, "department": "ICU"},
  "dev-002": {"id": 2, "deviceName": "ECG Monitor", "quantity": 1, "department": "Cardiology"}
}`

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"SOURCE_PATH", "FIREBASE_URL", "FIREBASE_BACKEND", "FIREBASE_CREDENTIALS_FILE",
		"GOOGLE_APPLICATION_CREDENTIALS", "FIREBASE_AUTH_TOKEN", "UPLOAD_VERIFY", "UPLOAD_DRY_RUN",
		"DATABASE_URL", "DB_URL", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(name, "")
	}
}

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "medical_devices.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// countingEmulator wraps an emulator and counts requests.
func countingEmulator(t *testing.T, opts emulator.Options) (*httptest.Server, *emulator.Server, *atomic.Int32) {
	t.Helper()
	emu := emulator.NewServer(opts)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		emu.Handler().ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, emu, &hits
}

func runCLI(t *testing.T, args ...string) (int, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr, false)
	return code, stdout.String()
}

func TestRun_UploadSucceeds(t *testing.T) {
	isolateEnv(t)
	srv, emu, hits := countingEmulator(t, emulator.Options{})

	code, out := runCLI(t, "--file", writeDoc(t, devices), "--url", srv.URL+"/medical_devices.json")

	assert.Equal(t, 0, code, out)
	assert.Contains(t, out, "Parsed 2 devices from JSON file")
	assert.Contains(t, out, "Data successfully uploaded to Firebase!")
	assert.Equal(t, int32(1), hits.Load())

	want, err := rtdb.Decode([]byte(devices))
	require.NoError(t, err)
	assert.True(t, rtdb.Equal(want, emu.Store().Get([]string{"medical_devices"})))
}

func TestRun_OverwritesExistingNode(t *testing.T) {
	isolateEnv(t)
	srv, emu, _ := countingEmulator(t, emulator.Options{})
	emu.Store().Set([]string{"medical_devices", "dev-999"}, map[string]any{"deviceName": "Stale"})
	emu.Store().Set([]string{"other"}, "kept")

	code, out := runCLI(t, "-f", writeDoc(t, devices), "-u", srv.URL+"/medical_devices.json")
	require.Equal(t, 0, code, out)

	assert.Nil(t, emu.Store().Get([]string{"medical_devices", "dev-999"}))
	assert.Equal(t, "kept", emu.Store().Get([]string{"other"}))
}

func TestRun_VerifyFromEnvironment(t *testing.T) {
	isolateEnv(t)
	srv, _, hits := countingEmulator(t, emulator.Options{})
	t.Setenv("SOURCE_PATH", writeDoc(t, devices))
	t.Setenv("FIREBASE_URL", srv.URL+"/medical_devices.json")
	t.Setenv("UPLOAD_VERIFY", "true")

	code, out := runCLI(t)

	assert.Equal(t, 0, code, out)
	assert.Contains(t, out, "Verified 2 entries")
	assert.Equal(t, int32(2), hits.Load())
}

func TestRun_BadInputExitsBeforeNetwork(t *testing.T) {
	isolateEnv(t)

	tests := []struct {
		name string
		path func(t *testing.T) string
		code string
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent.json") }, "FILE001"},
		{"malformed json", func(t *testing.T) string { return writeDoc(t, `{"dev-001": {`) }, "FILE003"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, hits := countingEmulator(t, emulator.Options{})

			code, out := runCLI(t, "--file", tt.path(t), "--url", srv.URL+"/medical_devices.json")

			assert.Equal(t, 1, code)
			assert.Contains(t, out, tt.code)
			assert.Zero(t, hits.Load())
		})
	}
}

func TestRun_ErrorStatusExitsOne(t *testing.T) {
	isolateEnv(t)

	t.Run("rules reject write", func(t *testing.T) {
		srv, _, _ := countingEmulator(t, emulator.Options{ReadOnly: true})

		code, out := runCLI(t, "--file", writeDoc(t, devices), "--url", srv.URL+"/medical_devices.json")

		assert.Equal(t, 1, code)
		assert.Contains(t, out, "Parsed 2 devices", "parse step completed first")
		assert.Contains(t, out, "UPL001")
	})

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		}))
		t.Cleanup(srv.Close)

		code, out := runCLI(t, "--file", writeDoc(t, devices), "--url", srv.URL+"/medical_devices.json")

		assert.Equal(t, 1, code)
		assert.Contains(t, out, "Parsed 2 devices")
		assert.Contains(t, out, "UPL002")
	})
}

func TestRun_UnreachableHostExitsOne(t *testing.T) {
	isolateEnv(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	code, out := runCLI(t, "--file", writeDoc(t, devices), "--url", "http://"+addr+"/medical_devices.json", "--timeout", "5s")

	assert.Equal(t, 1, code)
	assert.Contains(t, out, "UPL003")
}

func TestRun_ConfigurationErrors(t *testing.T) {
	isolateEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing file and url", nil},
		{"bad url scheme", []string{"--file", "x.json", "--url", "ftp://example.com/node.json"}},
		{"unknown flag", []string{"--bogus"}},
		{"positional argument", []string{"--file", "x.json", "--url", "https://example.firebaseio.com/a.json", "extra"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out := runCLI(t, tt.args...)
			assert.Equal(t, 1, code)
			assert.Contains(t, out, "Configuration error")
		})
	}
}

func TestRun_Help(t *testing.T) {
	isolateEnv(t)

	code, out := runCLI(t, "--help")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "--file")
}

func TestRun_DryRunMakesNoRequest(t *testing.T) {
	isolateEnv(t)
	srv, _, hits := countingEmulator(t, emulator.Options{})

	code, out := runCLI(t, "--file", writeDoc(t, devices), "--url", srv.URL+"/medical_devices.json", "--dry-run")

	assert.Equal(t, 0, code, out)
	assert.Zero(t, hits.Load())
}

func TestRun_AuthToken(t *testing.T) {
	isolateEnv(t)
	srv, _, _ := countingEmulator(t, emulator.Options{AuthToken: "db-secret"})
	doc := writeDoc(t, devices)
	url := srv.URL + "/medical_devices.json"

	code, out := runCLI(t, "--file", doc, "--url", url)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "UPL001")

	code, out = runCLI(t, "--file", doc, "--url", url, "--auth-token", "db-secret")
	assert.Equal(t, 0, code, out)
}
