// Package auth implements the pluggable header-based credential check
// gating access to mock endpoints.
package auth

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Mode selects the credential scheme.
type Mode string

// Supported auth modes.
const (
	ModeNone   Mode = "none"
	ModeBearer Mode = "bearer"
	ModeAPIKey Mode = "apikey"
	ModeBasic  Mode = "basic"
	ModeJWT    Mode = "jwt"
)

// Result is the outcome of a credential check.
type Result struct {
	OK      bool
	Message string
}

// Provider validates the value of its header for each request.
type Provider interface {
	// HeaderName names the request header carrying the credential.
	HeaderName() string
	// Validate checks a header value. An empty value means the header was
	// absent.
	Validate(headerValue string) Result
}

// SimpleProvider implements bearer, API-key, basic and JWT checks against
// an optional expected credential.
type SimpleProvider struct {
	mode     Mode
	expected string
}

// New builds a provider from the string mode name. An unknown mode is a
// configuration error. The expected credential is optional except for jwt
// mode, where it is the HS256 signing key.
func New(mode, expected string) (Provider, error) {
	switch Mode(strings.ToLower(mode)) {
	case ModeNone, "":
		return &SimpleProvider{mode: ModeNone}, nil
	case ModeBearer:
		return &SimpleProvider{mode: ModeBearer, expected: expected}, nil
	case ModeAPIKey:
		return &SimpleProvider{mode: ModeAPIKey, expected: expected}, nil
	case ModeBasic:
		return &SimpleProvider{mode: ModeBasic, expected: expected}, nil
	case ModeJWT:
		if expected == "" {
			return nil, fmt.Errorf("jwt auth mode requires a signing key")
		}
		return &SimpleProvider{mode: ModeJWT, expected: expected}, nil
	default:
		return nil, fmt.Errorf("unknown auth mode: %s (valid: none, bearer, apikey, basic, jwt)", mode)
	}
}

func (p *SimpleProvider) HeaderName() string {
	if p.mode == ModeAPIKey {
		return "X-API-Key"
	}
	return "Authorization"
}

func (p *SimpleProvider) Validate(headerValue string) Result {
	if p.mode == ModeNone {
		return Result{OK: true}
	}

	if strings.TrimSpace(headerValue) == "" {
		return Result{Message: fmt.Sprintf("Missing %s header", p.HeaderName())}
	}

	switch p.mode {
	case ModeBearer:
		return p.validateBearer(headerValue)
	case ModeAPIKey:
		return p.validateAPIKey(headerValue)
	case ModeBasic:
		return p.validateBasic(headerValue)
	case ModeJWT:
		return p.validateJWT(headerValue)
	default:
		return Result{OK: true}
	}
}

func (p *SimpleProvider) validateBearer(headerValue string) Result {
	token, ok := bearerToken(headerValue)
	if !ok {
		return Result{Message: "Invalid Authorization header format. Expected: Bearer <token>"}
	}
	if token == "" {
		return Result{Message: "Empty Bearer token"}
	}
	if p.expected != "" && token != p.expected {
		return Result{Message: "Invalid Bearer token"}
	}
	return Result{OK: true}
}

func (p *SimpleProvider) validateAPIKey(headerValue string) Result {
	if p.expected != "" && headerValue != p.expected {
		return Result{Message: "Invalid API key"}
	}
	return Result{OK: true}
}

func (p *SimpleProvider) validateBasic(headerValue string) Result {
	if !strings.HasPrefix(strings.ToLower(headerValue), "basic ") {
		return Result{Message: "Invalid Authorization header format. Expected: Basic <base64>"}
	}

	encoded := strings.TrimSpace(headerValue[len("Basic "):])
	if encoded == "" {
		return Result{Message: "Empty Basic credentials"}
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Result{Message: "Invalid Base64 encoding in Basic credentials"}
	}

	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 {
		return Result{Message: "Invalid Basic credentials format"}
	}

	if p.expected != "" && string(decoded) != p.expected {
		return Result{Message: "Invalid username or password"}
	}
	return Result{OK: true}
}

func (p *SimpleProvider) validateJWT(headerValue string) Result {
	raw, ok := bearerToken(headerValue)
	if !ok || raw == "" {
		return Result{Message: "Invalid Authorization header format. Expected: Bearer <token>"}
	}

	_, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(p.expected), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return Result{Message: fmt.Sprintf("Invalid JWT: %v", err)}
	}
	return Result{OK: true}
}

func bearerToken(headerValue string) (string, bool) {
	if !strings.HasPrefix(strings.ToLower(headerValue), "bearer ") {
		return "", false
	}
	return strings.TrimSpace(headerValue[len("Bearer "):]), true
}
