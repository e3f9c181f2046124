// Package api provides the HTTP REST API for the chat service.
//
// Endpoints:
//
//	POST /api/v1/chat          → streaming chat (newline-delimited JSON)
//	POST /api/v1/agent         → agent dispatch (two-phase stream)
//	POST /api/v1/memory/clear  → reset a conversation's memory
//	POST /api/v1/extract       → structured records from reply text
//	GET  /health               → liveness probe
//	GET  /ready                → readiness probe
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: recovery, request ID, logging, CORS
//   - ratelimit.go: per-client token bucket
//   - health.go: health check endpoints
//   - chat.go: streaming chat endpoint
//   - agent.go: agent dispatch endpoint
//   - memory.go: conversation memory endpoint
//   - extract.go: structured record extraction endpoint
//   - response.go: JSON response helpers
package api
