package http

// contextKey is a typed key for request-context values.
type contextKey string

// claimsContextKey holds the verified claims (JWT or OIDC) of an ops-API
// caller.
const claimsContextKey = contextKey("claims")
