// Package backend provides the HTTP client for generative-text backends.
//
// A single Client talks to any supported backend family through an Adapter
// that knows the generate endpoint, the default request body, and where the
// generated text lives in the response:
//
//   - ollama:   POST /api/generate, text in "response"
//   - koboldai: POST /api/v1/generate, text in "results[].text"
//   - openai:   POST /v1/chat/completions, text in "choices[].message.content"
//
// # Entry Points
//
// NewClient: construct a client from Config (Kind selects the adapter).
// Client.Generate: send one prompt, receive the generated text and raw body.
// Client.HealthCheck: single GET against the adapter's health endpoint.
// LookupAdapter / ExtractText: response extraction for callers holding raw bodies.
//
// # Retry Behaviour
//
// Every failed attempt (network error, timeout, non-2xx status, malformed body,
// empty generated text) is retried with exponential backoff (base 1s, max 10s,
// 3 attempts by default). A Retry-After header overrides the computed delay,
// capped at the maximum. Context cancellation aborts retries immediately.
// Exhausted retries surface as services.ErrBackend.
package backend
