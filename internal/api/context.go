// ABOUTME: Request context key types and constants for the api package.
// ABOUTME: Used by middleware to inject auth state and by handlers to read it.
package api

type contextKey int

const (
	ctxUserID        contextKey = iota // uuid.UUID — authenticated user
	ctxHierarchyID                     // hierarchy.ID — element resolved from URL path params
	ctxEffectiveRole                   // authz.EffectiveRole resolved for this request's element
	ctxClientIP                        // string — client IP address for rate limiting
)
