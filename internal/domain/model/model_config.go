package model

// ModelConfig describes one upstream LLM endpoint. Read-only from the
// chat core's perspective; edited through the catalog.
type ModelConfig struct {
	ID        int64
	Name      string
	Version   string // identifier string sent to the endpoint
	APIURL    string
	APIKey    string
	MaxTokens int // bounds generation output, never input
}
