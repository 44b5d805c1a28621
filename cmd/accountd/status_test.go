// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryServiceStatus(t *testing.T) {
	t.Run("live and ready", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		status := queryServiceStatus(strings.TrimPrefix(srv.URL, "http://"))
		assert.True(t, status.Live)
		assert.True(t, status.Ready)
		assert.Empty(t, status.Error)
	})

	t.Run("live but not ready", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "readiness") {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		status := queryServiceStatus(strings.TrimPrefix(srv.URL, "http://"))
		assert.True(t, status.Live)
		assert.False(t, status.Ready)
	})

	t.Run("not running", func(t *testing.T) {
		// Nothing listens on port 1.
		status := queryServiceStatus("127.0.0.1:1")
		assert.False(t, status.Live)
		assert.NotEmpty(t, status.Error)
	})
}

func TestStatusCommand_Output(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cmd := NewRootCmd()
	buf := new(strings.Builder)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"status", "--addr", strings.TrimPrefix(srv.URL, "http://")})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "running, ready")
}

func TestStatusCommand_JSONOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cmd := NewRootCmd()
	buf := new(strings.Builder)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"status", "--addr", strings.TrimPrefix(srv.URL, "http://"), "--json"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), `"live": true`)
	assert.Contains(t, buf.String(), `"ready": true`)
}
