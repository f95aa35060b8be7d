package auth

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	platformauth "github.com/photohub/photohub-saas/platform/go/auth"
)

func TestDevTokenCommandRoundTripsThroughVerifier(t *testing.T) {
	cmd := Command()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"devtoken",
		"--project-id", "photohub-dev",
		"--user-id", "uid-1",
		"--email", "anna@example.com",
		"--photographer-id", "5f0c3a8e-7d4b-4c1e-9a52-1c2d3e4f5a6b",
		"--admin",
	})
	require.NoError(t, cmd.Execute())

	token := strings.TrimSpace(out.String())
	claims, err := platformauth.UnsignedTokenVerifier()(t.Context(), token)
	require.NoError(t, err)

	creds, err := platformauth.DefaultCredentialExtractor(claims)
	require.NoError(t, err)
	require.Equal(t, "5f0c3a8e-7d4b-4c1e-9a52-1c2d3e4f5a6b", creds.PhotographerID)
	require.True(t, creds.IsAdmin)
}

func TestDevTokenCommandRejectsBadPhotographerID(t *testing.T) {
	cmd := Command()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"devtoken", "--project-id", "p", "--user-id", "u", "--email", "e@example.com", "--photographer-id", "42"})
	require.ErrorContains(t, cmd.Execute(), "--photographer-id")
}
