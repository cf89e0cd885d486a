package utils // package utils provides small helpers shared across components

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library used to decode gateway access tokens
)

// InspectAccessToken decodes the subject and expiry claims of a gateway
// access token. The gateway signs its tokens with a key the client does not
// hold, so the claims are read without signature verification. They are
// only used to recover metadata about a token the gateway itself issued,
// never to make an authorization decision.
func InspectAccessToken(token string) (subject string, expiresAt time.Time, err error) {
	claims := jwt.MapClaims{}
	if _, _, err = jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", time.Time{}, err
	}
	sub, _ := claims.GetSubject()
	if sub == "" {
		return "", time.Time{}, errors.New("token has no subject claim")
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return sub, time.Time{}, nil
	}
	return sub, exp.Time.UTC(), nil
}
