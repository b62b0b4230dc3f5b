package main

import (
	"strings"
	"testing"

	"github.com/jrsteele09/go-session-server/users"
	"github.com/stretchr/testify/require"
)

func TestRenderHash(t *testing.T) {
	out, err := render("Password123", "", "", "", users.RoleUser)
	require.NoError(t, err)
	require.True(t, users.CheckPasswordHash("Password123", strings.TrimSpace(out)))
}

func TestRenderSeedEntry(t *testing.T) {
	out, err := render("Password123", "42", " John.Doe@Example.com ", "John Doe", users.RoleAdmin)
	require.NoError(t, err)

	seeded, err := users.ParseSeed([]byte(out))
	require.NoError(t, err)
	require.Len(t, seeded, 1)
	require.Equal(t, "42", seeded[0].ID)
	require.Equal(t, "john.doe@example.com", seeded[0].Email)
	require.Equal(t, users.RoleAdmin, seeded[0].Role)
	require.True(t, seeded[0].CheckPassword("Password123"))
}

func TestRenderRejects(t *testing.T) {
	_, err := render("weak", "", "", "", users.RoleUser)
	require.Error(t, err)

	_, err = render("Password123", "42", "a@example.com", "", users.RoleType("root"))
	require.ErrorContains(t, err, "unknown role")

	_, err = render("Password123", "", "a@example.com", "", users.RoleUser)
	require.ErrorContains(t, err, "-id is required")
}
