// Package api serves the component registry over HTTP.
//
// Routes:
//
//	GET /api/components                        catalog
//	GET /api/components/{namespace}/{name}     detail (?version=)
//	GET /api/search?q=&limit=                  fuzzy catalog search
//	GET /api/profile/{username}                publisher profile
//	GET /api/user                              signed-in user
//	GET /api/user/components                   signed-in user's components
//	GET /api/live                              revision feed (WebSocket)
//	GET /healthz                               liveness
//	GET /metrics                               Prometheus exposition
//
// Every /api route rejects requests whose Origin header is not allowed.
// Successful catalog, detail and profile responses are cached in memory for
// the configured window and marked cacheable for shared caches.
//
// Errors use a fixed body:
//
//	{"error": "Not Found", "message": "Component not found"}
package api
