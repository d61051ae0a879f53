package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
	"google.golang.org/api/idtoken"
)

var (
	ErrMissingEmail    = errors.New("email not found in claims")
	ErrEmailUnverified = errors.New("email is not verified")
	ErrHostedDomain    = errors.New("account is outside the allowed domain")
)

// Verifier validates Google Sign-In ID tokens.
type Verifier struct {
	validate     func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
	hostedDomain string
}

// NewVerifier returns a verifier. When hostedDomain is set, only accounts of
// that Google Workspace domain are accepted.
func NewVerifier(hostedDomain string) *Verifier {
	return &Verifier{
		validate:     idtoken.Validate,
		hostedDomain: hostedDomain,
	}
}

var _ ports.TokenVerifier = (*Verifier)(nil)

func (v *Verifier) Verify(ctx context.Context, token string, clientID string) (*ports.TokenPayload, error) {
	payload, err := v.validate(ctx, token, clientID)
	if err != nil {
		return nil, err
	}
	return v.claims(payload.Claims)
}

func (v *Verifier) claims(claims map[string]any) (*ports.TokenPayload, error) {
	email, _ := claims["email"].(string)
	if email == "" {
		return nil, ErrMissingEmail
	}
	if verified, ok := claims["email_verified"].(bool); ok && !verified {
		return nil, ErrEmailUnverified
	}
	if v.hostedDomain != "" {
		if hd, _ := claims["hd"].(string); !strings.EqualFold(hd, v.hostedDomain) {
			return nil, fmt.Errorf("%w: %q", ErrHostedDomain, hd)
		}
	}

	name, _ := claims["name"].(string)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	return &ports.TokenPayload{Email: email, Name: name}, nil
}
