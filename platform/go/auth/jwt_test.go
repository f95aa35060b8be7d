package auth

import (
	"encoding/base64"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractJWTToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		found  bool
	}{
		{"missing header", "", "", false},
		{"wrong scheme", "Basic abc", "", false},
		{"bearer", "Bearer abc.def", "abc.def", true},
		{"lowercase bearer", "bearer   abc.def ", "abc.def", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			got, found := ExtractJWTToken(req)
			require.Equal(t, tt.found, found)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseUnsignedJWTClaims(t *testing.T) {
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"abc","isAdmin":true}`))

	claims, err := parseUnsignedJWTClaims("e30." + payload)
	require.NoError(t, err)
	require.Equal(t, "abc", claims["sub"])
	require.Equal(t, true, claims["isAdmin"])

	_, err = parseUnsignedJWTClaims("garbage")
	require.Error(t, err)
}
