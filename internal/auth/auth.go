// Package auth verifies request credentials and yields the caller's user id.
// Two verifiers are provided: a static token table for service accounts and
// HS256 JSON Web Tokens whose subject is the user id.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Verifier turns a bearer credential into a user id. It fails with an error
// wrapping types.ErrUnauthorized when the credential is not accepted.
type Verifier interface {
	Verify(ctx context.Context, credential string) (string, error)
}

// Unauthorized errors.
var (
	ErrNoCredential   = fmt.Errorf("missing bearer credential: %w", types.ErrUnauthorized)
	ErrBadCredential  = fmt.Errorf("credential rejected: %w", types.ErrUnauthorized)
	ErrExpiredToken   = fmt.Errorf("token expired: %w", types.ErrUnauthorized)
	ErrNoVerifier     = fmt.Errorf("no credential verifier configured: %w", types.ErrUnauthorized)
	errMissingSubject = fmt.Errorf("token has no subject: %w", types.ErrUnauthorized)
)

// Bearer returns the credential of an "Authorization: Bearer" header.
func Bearer(r *http.Request) (string, error) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, cred, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(cred) == "" {
		return "", ErrNoCredential
	}
	return strings.TrimSpace(cred), nil
}

// StaticTokens maps opaque API tokens to user ids.
type StaticTokens map[string]string

// Verify looks credential up in constant time per entry.
func (s StaticTokens) Verify(_ context.Context, credential string) (string, error) {
	for token, user := range s {
		if subtle.ConstantTimeCompare([]byte(token), []byte(credential)) == 1 {
			return user, nil
		}
	}
	return "", ErrBadCredential
}

// JWT verifies HS256 tokens signed with a shared secret.
type JWT struct {
	Secret []byte
	Issuer string
	Now    func() time.Time
}

// Verify parses and checks the token and returns its subject.
func (j *JWT) Verify(_ context.Context, credential string) (string, error) {
	if len(j.Secret) == 0 {
		return "", ErrNoVerifier
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if j.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.Issuer))
	}
	if j.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(j.Now))
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(credential, &claims, func(*jwt.Token) (any, error) {
		return j.Secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %v", ErrBadCredential, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errMissingSubject
	}
	return claims.Subject, nil
}

// Sign issues an HS256 token for subject valid for ttl. Used by the CLI to
// mint development tokens.
func (j *JWT) Sign(subject string, ttl time.Duration) (string, error) {
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	issued := now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    j.Issuer,
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(issued.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.Secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Chain tries each verifier in order and returns the first acceptance.
type Chain []Verifier

// Verify returns the first user id any verifier accepts.
func (c Chain) Verify(ctx context.Context, credential string) (string, error) {
	if len(c) == 0 {
		return "", ErrNoVerifier
	}
	err := ErrBadCredential
	for _, v := range c {
		user, verr := v.Verify(ctx, credential)
		if verr == nil {
			return user, nil
		}
		if errors.Is(verr, ErrExpiredToken) {
			err = verr
		}
	}
	return "", err
}

type userKey struct{}

// WithUser returns ctx carrying the authenticated user id.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFrom returns the user id stored by WithUser, or "".
func UserFrom(ctx context.Context) string {
	user, _ := ctx.Value(userKey{}).(string)
	return user
}
