// Package common contains shared constants and sentinel errors used across
// the token service components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound requests.
const AccessTokenHeaderName = "access_token"

// Cookie names shared with the web front end.
const (
	AccessTokenCookieName  = "auth-token"
	RefreshTokenCookieName = "refresh-token"
)

// Revocation reasons recorded on refresh token rows.
const (
	RevokeReasonRotated = "rotated"
	RevokeReasonLogout  = "logout"
	RevokeReasonAdmin   = "admin"
)
