package llm

import "net/http"

// Request is a fully built streaming request. Body construction and
// credentials are the caller's concern; the stream session only sends it and
// decodes the response according to Provider.
type Request struct {
	// Provider is the provider identity (e.g. "openai", "anthropic", "ollama")
	// that selects the wire decoder for the response.
	Provider string

	// URL is the full endpoint URL.
	URL string

	// Method defaults to POST when empty.
	Method string

	// Header is sent as-is. Content-Type and Accept are filled in when absent.
	Header http.Header

	// Body is the JSON request body.
	Body []byte
}
