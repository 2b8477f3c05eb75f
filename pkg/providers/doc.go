// Package providers implements the uniform adapter contract over LLM providers.
//
// # Overview
//
// Every provider speaks a different dialect: request shape, authentication
// header, streaming chunk format and image encoding all differ. The providers
// package defines a canonical conversation model (Message, ContentPart) and the
// Provider interface each adapter satisfies, so that nothing outside an adapter
// ever constructs provider-specific JSON.
//
// # Architecture
//
//  1. Canonical model - Message with plain text or ordered ContentParts (text, image)
//  2. Provider interface - IsConfigured, ResolveModel, EncodeRequest, SendCompletion, StreamCompletion
//  3. Base HTTP provider - pooled client, status mapping, passive health (no retries)
//  4. Adapters - openai, anthropic, gemini, grok, deepseek (subpackages)
//  5. Stream helpers - Stream (callback-driven delivery) and SimulateStream
//
// # Basic Usage
//
//	p := anthropic.NewProvider(providers.ProviderConfig{
//	    Name:   "anthropic",
//	    APIKey: os.Getenv("ANTHROPIC_API_KEY"),
//	})
//	defer p.Close()
//
//	req := &providers.CompletionRequest{
//	    Model: p.ResolveModel("claude-3-opus"),
//	    Messages: []providers.Message{
//	        {Role: providers.RoleSystem, Content: "You are terse."},
//	        {Role: providers.RoleUser, Parts: []providers.ContentPart{
//	            providers.TextPart("What is in this picture?"),
//	            providers.ImagePart("image/png", png),
//	        }},
//	    },
//	}
//
//	full, err := providers.Stream(ctx, p, req, func(delta string) error {
//	    _, err := w.Write([]byte(delta))
//	    return err
//	})
//
// # Streaming
//
// StreamCompletion returns a channel that carries deltas in provider order and
// always ends with exactly one terminal chunk. Adapters without a native
// streaming endpoint use SimulateStream: one chunk with the full text, then the
// terminal chunk. Callers cannot tell the two apart except by latency.
//
// # Error Handling
//
//   - ProviderError: non-2xx status, transport failure or malformed response
//   - ConfigError: credential absent or implausible (never echoes the value)
//   - ValidationError: request rejected before it was sent
//
// Adapters never retry; the caller decides whether to resubmit.
//
// # Thread Safety
//
// All adapters are safe for concurrent use.
package providers
