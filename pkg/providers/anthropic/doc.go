// Package anthropic implements the Claude adapter for Anthropic's Messages API.
//
// The canonical system message is hoisted into the request's "system" field.
// Consecutive turns with the same role are merged because the API requires
// strict user/assistant alternation. Images are sent inline:
//
//	{"type": "image", "source": {"type": "base64", "media_type": "image/png", "data": "..."}}
//
// Streaming reads named SSE events (message_start, content_block_delta,
// message_delta, message_stop, ping, error).
package anthropic
