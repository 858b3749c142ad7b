// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package store

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsFS_EmbeddedFiles(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)

	pattern := regexp.MustCompile(`^\d{6}_\w+\.(up|down)\.sql$`)
	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, entry := range entries {
		name := entry.Name()
		require.True(t, pattern.MatchString(name), "unexpected migration file %s", name)
		if stem, ok := strings.CutSuffix(name, ".up.sql"); ok {
			ups[stem] = true
		} else {
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}

	assert.True(t, ups["000001_initial"])
	assert.Equal(t, ups, downs, "every up migration needs a down migration")
}

func TestMigrationsFS_InitialSchema(t *testing.T) {
	data, err := migrationsFS.ReadFile("migrations/000001_initial.up.sql")
	require.NoError(t, err)
	sql := string(data)

	for _, want := range []string{
		"CREATE TABLE users",
		"CREATE TABLE rooms",
		"CREATE TABLE messages",
		"CREATE TABLE memberships",
		"UNIQUE (username)",
		"UNIQUE (room_id)",
		"UNIQUE (user_id, room_id)",
	} {
		assert.Contains(t, sql, want)
	}
}
