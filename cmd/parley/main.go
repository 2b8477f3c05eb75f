// Parley is a chat gateway that puts several LLM providers behind one
// authenticated HTTP API.
//
// It accepts a user's message with optional file attachments, routes it to
// the provider that serves the requested model, enforces per-user quotas and
// premium model gating, and answers either in one response or as a stream of
// server-sent events.
//
// Usage:
//
//	# Start the gateway with config.yaml in the working directory
//	parley run
//
//	# Start with a custom configuration file
//	parley run --config /etc/parley/config.yaml
//
//	# Apply database migrations
//	parley migrate up
//
//	# Show how model ids are routed
//	parley models
//
//	# Issue a development bearer token
//	parley token --user alice
//
//	# Mark a user as subscribed
//	parley users set alice --subscribed
//
//	# List a user's durable chats
//	parley chats --user alice
//
//	# Generate a development TLS certificate
//	parley certs generate --host localhost
package main

func main() {
	Execute()
}
