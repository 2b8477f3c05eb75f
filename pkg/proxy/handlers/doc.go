// Package handlers implements the chat endpoints.
//
//	POST   /chat                one-shot turn, JSON response
//	POST   /chat/stream         streamed turn, Server-Sent Events
//	DELETE /chat/{sessionId}    delete a session and its uploads
//
// Every route expects "Authorization: Bearer <token>". The auth middleware
// rejects a missing or malformed header with 401 before a handler runs; the
// orchestrator verifies the token itself.
//
// # One-shot Response
//
//	{"sessionId": "s1", "model": "gpt-4o-mini", "response": "Hello!"}
//
// # Errors
//
// Handlers never build error bodies themselves; they pass errors through
// proxy.HandleError. See package proxy for the mapping.
package handlers
