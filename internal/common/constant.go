package common

// AuthorizationHeaderName carries the caller's bearer token.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the JWT in the Authorization header.
const BearerPrefix = "Bearer "
