package model

import "time"

// Session is the client's cached copy of the credential bundle issued by the
// remote identity gateway. The gateway owns the session; the client only
// holds it so that requests can be authenticated and so that the subject can
// be identified without a network round trip.
//
// Fields:
//  SubjectID    – unique identifier of the authenticated identity.
//  AccessToken  – short‑lived bearer token presented to the gateway.
//  RefreshToken – refresh material used to silently obtain a new access token.
//  ExpiresAt    – UTC expiry of the access token.
type Session struct {
	SubjectID    string    `json:"subject_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the access token has passed its expiry. A small
// skew is subtracted so that a token about to lapse mid-request is treated
// as already expired and refreshed up front.
func (s *Session) Expired() bool {
	if s == nil {
		return true
	}
	return time.Now().UTC().After(s.ExpiresAt.Add(-30 * time.Second))
}
