package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// CognitoClaims is the subset of the Cognito ID token this service reads.
type CognitoClaims struct {
	Email  string   `json:"email"`
	Name   string   `json:"name"`
	Groups []string `json:"cognito:groups"`
	jwt.RegisteredClaims
}

// ParseCognitoToken decodes the claims of an already-validated Cognito token.
// Signature verification is the API Gateway authorizer's job; by the time a
// token reaches this service it has either been validated upstream or the
// deployment is local development, so only the claim shape is checked here.
func ParseCognitoToken(token string) (*UserContext, error) {
	parser := jwt.NewParser()

	claims := &CognitoClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("malformed token: %w", err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("token missing sub claim")
	}

	return &UserContext{
		UserID: claims.Subject,
		Email:  claims.Email,
		Name:   claims.Name,
		Groups: claims.Groups,
	}, nil
}
