// Package billing answers entitlement questions. Purchases and restores run
// on the client against the store SDK; what arrives here is a signed receipt
// token whose validity gates reply generation.
package billing

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Receipt is the verified content of an entitlement token.
type Receipt struct {
	UserID    string
	PlanID    string
	ExpiresAt time.Time
}

// Service is the entitlement oracle consumed by the lifecycle service.
type Service interface {
	// IsEntitlementActive reports whether the receipt grants an active
	// subscription right now.
	IsEntitlementActive(ctx context.Context, token string) bool
	// VerifyReceipt validates the token signature and expiry.
	VerifyReceipt(token string) (*Receipt, error)
}

type receiptClaims struct {
	PlanID string `json:"plan_id"`
	jwt.RegisteredClaims
}

type jwtService struct {
	secret []byte
	// allowEmpty accepts a missing receipt, for dev/demo mode.
	allowEmpty bool
}

// NewJWTService verifies HMAC-signed receipt tokens with the given secret.
// When allowEmpty is set an absent token counts as entitled.
func NewJWTService(secret string, allowEmpty bool) Service {
	return &jwtService{secret: []byte(secret), allowEmpty: allowEmpty}
}

func (s *jwtService) IsEntitlementActive(_ context.Context, token string) bool {
	if token == "" {
		return s.allowEmpty
	}
	_, err := s.VerifyReceipt(token)
	return err == nil
}

func (s *jwtService) VerifyReceipt(token string) (*Receipt, error) {
	claims := &receiptClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "invalid receipt token")
	}
	if !parsed.Valid {
		return nil, errors.New("invalid receipt token")
	}

	receipt := &Receipt{
		UserID: claims.Subject,
		PlanID: claims.PlanID,
	}
	if claims.ExpiresAt != nil {
		receipt.ExpiresAt = claims.ExpiresAt.Time
	}
	return receipt, nil
}

// SignReceipt issues a receipt token, used by tests and the dev tooling.
func SignReceipt(secret string, receipt *Receipt) (string, error) {
	claims := &receiptClaims{
		PlanID: receipt.PlanID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   receipt.UserID,
			ExpiresAt: jwt.NewNumericDate(receipt.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Static is a fixed-answer Service for tests.
type Static struct {
	Active bool
}

func (s *Static) IsEntitlementActive(context.Context, string) bool { return s.Active }

func (s *Static) VerifyReceipt(string) (*Receipt, error) {
	if !s.Active {
		return nil, errors.New("entitlement inactive")
	}
	return &Receipt{PlanID: "static"}, nil
}
