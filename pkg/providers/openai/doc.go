// Package openai implements the OpenAI chat completions adapter.
//
// The same Provider type serves any OpenAI-compatible endpoint through
// NewCompatible; the grok and deepseek adapters are built that way.
//
// # Wire Format
//
// The system message stays in the messages array. A message with image parts
// is sent as a content array:
//
//	{"role": "user", "content": [
//	    {"type": "text", "text": "What is this?"},
//	    {"type": "image_url", "image_url": {"url": "data:image/png;base64,..."}}
//	]}
//
// # Streaming
//
// Streams are read line by line; "data: [DONE]" ends the stream. A stream that
// closes without [DONE] or a finish reason is reported as a ProviderError.
package openai
