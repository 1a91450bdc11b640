// Package common contains shared constants and sentinel errors used across
// blindvote components.
package common

// AccessTokenHeaderName is the HTTP header used to carry the access token on
// outbound requests.
const AccessTokenHeaderName = "Authorization"
