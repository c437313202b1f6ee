// Package generate selects and drives the LLM backend that answers the
// user's question from the composed prompt. It wraps the eino chat model
// abstraction with the error taxonomy and token/cost accounting the rest of
// the application reports.
// Supported backends: Ollama, OpenAI, Azure OpenAI, AWS Bedrock, Google Gemini.
package generate

import "fmt"

// Backend enumerates the supported LLM inference providers.
type Backend string

const (
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI Service.
	BackendAzure Backend = "azure"
	// BackendBedrock selects AWS Bedrock.
	BackendBedrock Backend = "bedrock"
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
)

// Config holds all generation-backend configuration resolved from the config
// file, environment variables, or explicit caller-supplied values.
type Config struct {
	// Backend identifies which inference provider to use.
	Backend Backend

	// Model is the model name or deployment ID to use (e.g. "gpt-4o", "llama3").
	Model string

	// BaseURL overrides the default API endpoint (required for Azure,
	// optional for Ollama and Bedrock).
	BaseURL string

	// APIKey is the authentication credential for the selected provider.
	APIKey string

	// AzureDeployment is the Azure OpenAI deployment name (Azure only).
	AzureDeployment string

	// AzureAPIVersion is the Azure OpenAI REST API version (Azure only),
	// e.g. "2024-02-01".
	AzureAPIVersion string

	// MaxTokens caps the number of tokens the model may generate per response.
	MaxTokens int

	// Temperature controls response randomness (0.0–1.0). Individual
	// Generate calls may override it.
	Temperature float32
}

// Validate checks that the config names a known backend and carries the
// credentials that backend needs. Credential errors surface here, before any
// network call, wrapped in ErrAuth.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendOllama:
		// Local backend, no credential.
	case BackendOpenAI, BackendGemini:
		if c.APIKey == "" {
			return fmt.Errorf("generate: %s backend requires an API key: %w", c.Backend, ErrAuth)
		}
	case BackendAzure:
		if c.APIKey == "" {
			return fmt.Errorf("generate: azure backend requires an API key: %w", ErrAuth)
		}
		if c.BaseURL == "" {
			return fmt.Errorf("generate: azure backend requires the endpoint URL")
		}
		if c.AzureDeployment == "" {
			return fmt.Errorf("generate: azure backend requires a deployment name")
		}
	case BackendBedrock:
		if c.APIKey == "" {
			return fmt.Errorf("generate: bedrock backend requires an API key: %w", ErrAuth)
		}
	default:
		return fmt.Errorf("generate: unknown backend %q — valid values: ollama, openai, azure, bedrock, gemini", c.Backend)
	}
	if c.Model == "" {
		return fmt.Errorf("generate: model name is required")
	}
	return nil
}
