package llm

// LLMConfigResponse is the response for GET /llm/config.
type LLMConfigResponse struct {
	Provider string `json:"provider" example:"openai"`
	Model    string `json:"model" example:"deepseek-ai/DeepSeek-V2.5"`
	URL      string `json:"url,omitempty"` // base URL for HTTP backends
}

// LLMTestResponse is the response for POST /llm/test.
type LLMTestResponse struct {
	Success   bool     `json:"success"`
	Message   string   `json:"message"`
	Code      string   `json:"code,omitempty" example:"transport_error"`
	Model     string   `json:"model,omitempty"`
	Models    []string `json:"models,omitempty"`
	LatencyMS int64    `json:"latency_ms" example:"412"`
}
