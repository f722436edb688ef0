package identity

import (
	"testing"
	"time"

	"pawfeed/internal/config"
	"pawfeed/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func TestProvider_Resolve(t *testing.T) {
	p := NewProvider(&config.Config{JWTSecret: testSecret, JWTIssuer: "pawfeed", JWTAudience: "pawfeed-api"})
	subject := uuid.NewString()

	valid, err := p.Issue(subject, time.Hour)
	require.NoError(t, err)
	expired, err := p.Issue(subject, -time.Hour)
	require.NoError(t, err)

	other := NewProvider(&config.Config{JWTSecret: testSecret, JWTIssuer: "someone-else", JWTAudience: "pawfeed-api"})
	wrongIssuer, err := other.Issue(subject, time.Hour)
	require.NoError(t, err)

	numeric, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "123",
		"iss": "pawfeed",
		"aud": "pawfeed-api",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": subject}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		want    string
		wantErr bool
	}{
		{name: "Happy Path", token: valid, want: subject},
		{name: "Expired Token", token: expired, wantErr: true},
		{name: "Wrong Issuer", token: wrongIssuer, wantErr: true},
		{name: "Non UUID Subject", token: numeric, wantErr: true},
		{name: "None Algorithm", token: noneAlg, wantErr: true},
		{name: "Malformed Token", token: "malformed.token.here", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Resolve(tt.token)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromHeader(t *testing.T) {
	tok, ok, err := FromHeader("")
	assert.Empty(t, tok)
	assert.False(t, ok)
	assert.NoError(t, err)

	tok, ok, err = FromHeader("Bearer abc")
	assert.Equal(t, "abc", tok)
	assert.True(t, ok)
	assert.NoError(t, err)

	_, ok, err = FromHeader("Basic dXNlcjpwYXNz")
	assert.True(t, ok)
	assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))
}
