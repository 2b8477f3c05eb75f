// Package gemini implements the Gemini adapter over the generateContent API.
//
// The endpoint has no incremental delivery in the form used here, so
// StreamCompletion performs the blocking call and emits the whole answer as
// one chunk. Images are sent as inlineData parts; the system message becomes
// systemInstruction and the assistant role is renamed "model".
package gemini
