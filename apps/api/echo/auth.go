package echoapi

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bestqrov/lahwla/core"
	"github.com/bestqrov/lahwla/core/student"
)

// TokenManager issues signed JWTs for authenticated students.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewTokenManager(conf *core.Config) *TokenManager {
	return &TokenManager{
		secret: conf.SecretKey,
		issuer: conf.AppName,
		ttl:    conf.JWTExpirationDelta,
	}
}

// Generate issues a signed JWT string for the provided student.
func (t *TokenManager) Generate(st student.Student) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   t.issuer,
		"sub":   st.ID,
		"name":  st.FullName(),
		"email": st.Email,
		"iat":   now.Unix(),
		"nbf":   now.Unix(),
		"exp":   now.Add(t.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}
