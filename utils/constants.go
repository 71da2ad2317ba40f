package utils

import "time"

type contextKey string

// Request-scoped context keys set by the HTTP layer
const (
	RequestIDKey contextKey = "request_id"
	UserAgentKey contextKey = "user_agent"
	IPAddressKey contextKey = "ip_address"
	EndpointKey  contextKey = "endpoint"
	ActorKey     contextKey = "actor"
)

// Fiber locals set by the auth middleware
const (
	LocalsActor     = "actor"
	LocalsUserID    = "user_id"
	LocalsRequestID = "requestid"
)

const RequestIDHeader = "X-Request-ID"

// DefaultRequestTimeout bounds a handler's call into the flows when no config value is supplied
const DefaultRequestTimeout = 15 * time.Second

// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
const CORSMaxAge = 86400
