package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for every credential that fails verification.
var ErrInvalidToken = errors.New("invalid or expired token")

// Verifier validates a raw bearer credential.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*Identity, error)
}

// VerifierOptions configures a JWTVerifier.
type VerifierOptions struct {
	Issuer     string
	Audience   string
	RolesClaim string
	// Methods lists the accepted signing algorithms. Defaults to RS256.
	Methods []string
}

// JWTVerifier checks signature, expiry, issuer and audience of JWT access tokens.
type JWTVerifier struct {
	keyFunc jwt.Keyfunc
	opts    VerifierOptions
	parser  *jwt.Parser
}

// NewJWTVerifier builds a verifier that resolves signing keys with keyFunc.
func NewJWTVerifier(keyFunc jwt.Keyfunc, opts VerifierOptions) *JWTVerifier {
	if len(opts.Methods) == 0 {
		opts.Methods = []string{jwt.SigningMethodRS256.Alg()}
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods(opts.Methods),
		jwt.WithIssuer(opts.Issuer),
		jwt.WithAudience(opts.Audience),
		jwt.WithExpirationRequired(),
	)
	return &JWTVerifier{keyFunc: keyFunc, opts: opts, parser: parser}
}

// NewAuth0Verifier fetches the tenant's JWKS and keeps it refreshed in the
// background for the lifetime of ctx.
func NewAuth0Verifier(ctx context.Context, jwksURL string, opts VerifierOptions) (*JWTVerifier, error) {
	k, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to load JWKS from %s: %w", jwksURL, err)
	}
	return NewJWTVerifier(k.Keyfunc, opts), nil
}

// Verify parses rawToken and returns its Identity.
func (v *JWTVerifier) Verify(_ context.Context, rawToken string) (*Identity, error) {
	claims := jwt.MapClaims{}
	token, err := v.parser.ParseWithClaims(rawToken, claims, v.keyFunc)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	id := &Identity{
		Subject:     sub,
		Email:       stringClaim(claims, "email"),
		Name:        stringClaim(claims, "name"),
		Permissions: stringsClaim(claims, "permissions"),
	}
	if v.opts.RolesClaim != "" {
		id.Roles = stringsClaim(claims, v.opts.RolesClaim)
	}
	return id, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}

func stringsClaim(claims jwt.MapClaims, key string) []string {
	switch raw := claims[key].(type) {
	case []interface{}:
		out := make([]string, 0, len(raw))
		for _, item := range raw {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		// space-delimited, like the OAuth "scope" claim
		return strings.Fields(raw)
	}
	return nil
}
