// Package auth verifies bearer tokens and exposes the caller to handlers.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSecret     = errors.New("empty signing secret")
)

// JWKS refresh cadence. A token whose kid is not in the cached set triggers
// an early refresh, at most once per unknownKIDInterval.
const (
	jwksRefreshInterval = time.Hour
	unknownKIDInterval  = 5 * time.Minute
	unknownKIDWaitMax   = time.Minute
)

// Claims is the caller identity carried by a verified token.
type Claims struct {
	Subject  string `json:"sub"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
}

// Verifier checks tokens signed either with a shared HS256 secret or with RSA
// keys published as a JWKS document.
type Verifier struct {
	secret []byte
	jwks   keyfunc.Keyfunc
	issuer string
}

// NewHS256Verifier accepts tokens signed with secret.
func NewHS256Verifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// NewJWKSVerifier loads the key set at jwksURL and keeps it fresh until ctx
// is done. When issuer is set, tokens must carry it in "iss".
func NewJWKSVerifier(ctx context.Context, jwksURL, issuer string) (*Verifier, error) {
	u, err := url.Parse(jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch jwks: %w", err)
	}
	remote, err := jwkset.NewStorageFromHTTP(u, jwkset.HTTPClientStorageOptions{
		Ctx:             ctx,
		HTTPTimeout:     10 * time.Second,
		RefreshInterval: jwksRefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			log.Printf("Warning: failed to refresh jwks from %s: %v", jwksURL, err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch jwks: %w", err)
	}

	client, err := jwkset.NewHTTPClient(jwkset.HTTPClientOptions{
		HTTPURLs:          map[string]jwkset.Storage{jwksURL: remote},
		RefreshUnknownKID: rate.NewLimiter(rate.Every(unknownKIDInterval), 1),
		RateLimitWaitMax:  unknownKIDWaitMax,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create jwks client: %w", err)
	}

	kf, err := keyfunc.New(keyfunc.Options{Ctx: ctx, Storage: client})
	if err != nil {
		return nil, fmt.Errorf("failed to create jwks keyfunc: %w", err)
	}
	return &Verifier{jwks: kf, issuer: issuer}, nil
}

// NewCognitoVerifier verifies tokens issued by a Cognito user pool.
func NewCognitoVerifier(ctx context.Context, region, userPoolID string) (*Verifier, error) {
	if region == "" || userPoolID == "" {
		return nil, fmt.Errorf("cognito region and user pool id are required")
	}
	issuer := fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", region, userPoolID)
	return NewJWKSVerifier(ctx, issuer+"/.well-known/jwks.json", issuer)
}

func (v *Verifier) keyFunc(t *jwt.Token) (interface{}, error) {
	switch t.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if v.secret == nil {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	case *jwt.SigningMethodRSA:
		if v.jwks == nil {
			return nil, errors.New("unexpected signing method")
		}
		return v.jwks.Keyfunc(t)
	}
	return nil, errors.New("unexpected signing method")
}

// Verify parses tokenString and returns its identity claims.
func (v *Verifier) Verify(tokenString string) (Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "RS256"}), jwt.WithExpirationRequired()}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.Parse(tokenString, v.keyFunc, opts...)
	if err != nil || !token.Valid {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, fmt.Errorf("%w: invalid token claims", ErrInvalidToken)
	}

	c := Claims{}
	c.Subject, _ = mc["sub"].(string)
	c.Email, _ = mc["email"].(string)
	c.Username, _ = mc["username"].(string)
	if c.Username == "" {
		c.Username, _ = mc["cognito:username"].(string)
	}
	if c.Subject == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return c, nil
}

// GenerateToken issues an HS256 token for local development and tests.
func GenerateToken(secret, userID, email, username string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("empty userID passed to GenerateToken")
	}
	if secret == "" {
		return "", ErrNoSecret
	}

	claims := jwt.MapClaims{
		"sub":      userID,
		"email":    email,
		"username": username,
		"exp":      time.Now().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
