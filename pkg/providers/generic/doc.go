// Package generic adapts any OpenAI-compatible third party (xAI Grok,
// Deepseek, self-hosted gateways) by pairing the OpenAI wire format with a
// backend-specific Profile: endpoint, credential prefix and model table.
//
//	p, err := generic.NewProvider(cfg, generic.Profile{
//	    Descriptor: providers.Descriptor{
//	        Name:         "together",
//	        KeyPrefix:    "tg-",
//	        DefaultModel: "meta-llama/Llama-3-70b-chat-hf",
//	    },
//	    DefaultBaseURL: "https://api.together.xyz/v1",
//	})
package generic
