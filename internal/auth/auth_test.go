package auth

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

func TestBearer(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc", "abc", false},
		{"bearer  abc ", "abc", false},
		{"Basic abc", "", true},
		{"Bearer", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		got, err := Bearer(r)
		if tt.wantErr {
			assert.ErrorIs(t, err, types.ErrUnauthorized, tt.header)
			continue
		}
		require.NoError(t, err, tt.header)
		assert.Equal(t, tt.want, got)
	}
}

func TestStaticTokens(t *testing.T) {
	v := StaticTokens{"tok-olive": "olive"}
	user, err := v.Verify(context.Background(), "tok-olive")
	require.NoError(t, err)
	assert.Equal(t, "olive", user)

	_, err = v.Verify(context.Background(), "tok-nobody")
	assert.ErrorIs(t, err, types.ErrUnauthorized)
}

func TestJWT(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	signer := &JWT{Secret: []byte("s3cret"), Issuer: "pantry", Now: clock}

	token, err := signer.Sign("olive", time.Hour)
	require.NoError(t, err)

	user, err := signer.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "olive", user)

	tests := []struct {
		name     string
		verifier *JWT
		wantErr  error
	}{
		{"wrong secret", &JWT{Secret: []byte("other"), Issuer: "pantry", Now: clock}, ErrBadCredential},
		{"wrong issuer", &JWT{Secret: []byte("s3cret"), Issuer: "elsewhere", Now: clock}, ErrBadCredential},
		{"expired", &JWT{Secret: []byte("s3cret"), Issuer: "pantry", Now: func() time.Time { return now.Add(2 * time.Hour) }}, ErrExpiredToken},
		{"unconfigured", &JWT{}, ErrNoVerifier},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.verifier.Verify(context.Background(), token)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, types.ErrUnauthorized)
		})
	}
}

func TestChain(t *testing.T) {
	signer := &JWT{Secret: []byte("s3cret")}
	token, err := signer.Sign("mia", time.Hour)
	require.NoError(t, err)
	chain := Chain{StaticTokens{"tok-olive": "olive"}, signer}

	user, err := chain.Verify(context.Background(), "tok-olive")
	require.NoError(t, err)
	assert.Equal(t, "olive", user)
	user, err = chain.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "mia", user)

	_, err = chain.Verify(context.Background(), "garbage")
	assert.ErrorIs(t, err, types.ErrUnauthorized)
	_, err = Chain{}.Verify(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoVerifier)
}

func TestUserContext(t *testing.T) {
	ctx := WithUser(context.Background(), "olive")
	assert.Equal(t, "olive", UserFrom(ctx))
	assert.Empty(t, UserFrom(context.Background()))
}
