package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v4"
)

const firebaseIssuerPrefix = "https://securetoken.google.com/"

// ServiceAccount is the subset of a Google service account file the
// verifier needs.
type ServiceAccount struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
}

func ParseServiceAccount(raw []byte) (ServiceAccount, error) {
	var sa ServiceAccount
	if err := json.Unmarshal(raw, &sa); err != nil {
		return ServiceAccount{}, fmt.Errorf("service account: %w", err)
	}
	if sa.ProjectID == "" {
		return ServiceAccount{}, errors.New("service account: project_id is empty")
	}
	return sa, nil
}

// KeySource resolves the signing key named by a token's kid header.
type KeySource interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

type firebaseClaims struct {
	Email    string `json:"email"`
	AuthTime int64  `json:"auth_time"`
	jwt.RegisteredClaims
}

// FirebaseVerifier checks Firebase ID tokens for one project.
type FirebaseVerifier struct {
	projectID string
	keys      KeySource
	parser    *jwt.Parser
}

func NewFirebaseVerifier(projectID string, keys KeySource) *FirebaseVerifier {
	return &FirebaseVerifier{
		projectID: projectID,
		keys:      keys,
		parser:    jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()})),
	}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	var claims firebaseClaims
	parsed, err := v.parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("no key id in token header")
		}
		return v.keys.Key(ctx, kid)
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	if err := v.checkClaims(&claims); err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return Identity{Email: claims.Email, Subject: claims.Subject}, nil
}

func (v *FirebaseVerifier) checkClaims(c *firebaseClaims) error {
	if !c.VerifyIssuer(firebaseIssuerPrefix+v.projectID, true) {
		return fmt.Errorf("unexpected issuer %q", c.Issuer)
	}
	if !c.VerifyAudience(v.projectID, true) {
		return fmt.Errorf("unexpected audience %v", c.Audience)
	}
	if c.Subject == "" {
		return errors.New("empty subject")
	}
	if c.AuthTime > jwt.TimeFunc().Add(time.Minute).Unix() {
		return errors.New("auth_time is in the future")
	}
	if c.Email == "" {
		return errors.New("no email claim")
	}
	return nil
}
