// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package main

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accountd/accountd/internal/auth"
)

func TestServeCommand_RequiresSecret(t *testing.T) {
	t.Setenv("ACCOUNTD_AUTH_SECRET", "")

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"serve"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration")
}

func TestServeCommand_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("ACCOUNTD_AUTH_SECRET", base64.StdEncoding.EncodeToString(make([]byte, auth.SecretKeySize)))
	t.Setenv("ACCOUNTD_DATABASE_URL", "")
	t.Setenv("DATABASE_URL", "")

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"serve"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL")
}

func TestServeCommand_Flags(t *testing.T) {
	cmd := newServeCmd()

	for _, flag := range []string{"http.addr", "observability.addr", "log.format", "log.level"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "missing flag %q", flag)
	}
}
