// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/pkg/errutil"
)

func TestParseForceVersion(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantVersion int
		wantErr     bool
	}{
		{name: "valid integer", input: "3", wantVersion: 3},
		{name: "zero is valid", input: "0", wantVersion: 0},
		{name: "surrounding space is trimmed", input: " 2 ", wantVersion: 2},
		{name: "non-numeric", input: "abc", wantErr: true},
		{name: "float", input: "1.5", wantErr: true},
		{name: "trailing chars", input: "3abc", wantErr: true},
		{name: "negative", input: "-1", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseForceVersion(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, "INVALID_VERSION")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVersion, got)
		})
	}
}

func runMigrate(t *testing.T, m *mockMigrator, args ...string) (string, error) {
	t.Helper()
	clearEnv(t)
	configFile = ""

	cmd := newMigrateCmd(&MigrateDeps{
		MigratorFactory: func(url string) (Migrator, error) {
			assert.Equal(t, "postgres://test/db", url)
			return m, nil
		},
	})
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append(args, "--database-url", "postgres://test/db"))
	err := cmd.Execute()
	return buf.String(), err
}

func TestMigrateCmd_Up(t *testing.T) {
	m := &mockMigrator{}
	out, err := runMigrate(t, m, "up")
	require.NoError(t, err)
	assert.True(t, m.upCalled)
	assert.True(t, m.closeCalled)
	assert.Contains(t, out, "Migrations applied")
}

func TestMigrateCmd_UpError(t *testing.T) {
	m := &mockMigrator{upError: errors.New("syntax error at line 3")}
	_, err := runMigrate(t, m, "up")
	require.Error(t, err)
	assert.True(t, m.closeCalled, "migrator must be closed on failure")
}

func TestMigrateCmd_Down(t *testing.T) {
	t.Run("all", func(t *testing.T) {
		m := &mockMigrator{}
		out, err := runMigrate(t, m, "down")
		require.NoError(t, err)
		assert.True(t, m.downCalled)
		assert.Contains(t, out, "All migrations rolled back")
	})

	t.Run("steps", func(t *testing.T) {
		m := &mockMigrator{}
		out, err := runMigrate(t, m, "down", "--steps", "2")
		require.NoError(t, err)
		assert.False(t, m.downCalled)
		assert.Equal(t, -2, m.steps)
		assert.Contains(t, out, "Rolled back 2 migration(s)")
	})

	t.Run("negative steps", func(t *testing.T) {
		m := &mockMigrator{}
		_, err := runMigrate(t, m, "down", "--steps", "-1")
		require.Error(t, err)
		assert.False(t, m.closeCalled, "migrator must not be created")
	})
}

func TestMigrateCmd_Status(t *testing.T) {
	t.Run("pending migrations", func(t *testing.T) {
		m := &mockMigrator{version: 1, pending: []uint{2}}
		out, err := runMigrate(t, m, "status")
		require.NoError(t, err)
		assert.Contains(t, out, "Current version: 1 (000001_initial)")
		assert.Contains(t, out, "Pending: 1")
		assert.Contains(t, out, "000002_lookup_indexes")
	})

	t.Run("empty and dirty", func(t *testing.T) {
		m := &mockMigrator{dirty: true, pending: []uint{1, 2}}
		out, err := runMigrate(t, m, "status")
		require.NoError(t, err)
		assert.Contains(t, out, "Current version: none")
		assert.Contains(t, out, "Dirty: yes")
		assert.Contains(t, out, "Pending: 2")
	})

	t.Run("up to date", func(t *testing.T) {
		m := &mockMigrator{version: 2}
		out, err := runMigrate(t, m, "status")
		require.NoError(t, err)
		assert.Contains(t, out, "Pending: none")
	})
}

func TestMigrateCmd_Force(t *testing.T) {
	m := &mockMigrator{}
	out, err := runMigrate(t, m, "force", "1")
	require.NoError(t, err)
	require.NotNil(t, m.forced)
	assert.Equal(t, 1, *m.forced)
	assert.Contains(t, out, "Forced version 1")

	_, err = runMigrate(t, &mockMigrator{}, "force", "x")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "INVALID_VERSION")
}

func TestMigrateCmd_RequiresDatabaseURL(t *testing.T) {
	clearEnv(t)
	configFile = ""

	called := false
	cmd := newMigrateCmd(&MigrateDeps{
		MigratorFactory: func(string) (Migrator, error) {
			called = true
			return &mockMigrator{}, nil
		},
	})
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"up"})

	err := cmd.Execute()
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	assert.False(t, called)
}
