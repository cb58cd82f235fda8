package config

// CredentialStatus describes one configured credential without ever
// exposing its value: presence and length only.
type CredentialStatus struct {
	Name    string `json:"name"`
	Present bool   `json:"present"`
	Length  int    `json:"length"`
}

// Diagnostics returns a one-time boot record of which external
// credentials are configured. It is logged once at startup and echoed
// by the check-key endpoint; values are never included.
func Diagnostics(cfg *Config) []CredentialStatus {
	creds := []struct {
		name  string
		value string
	}{
		{"apify.token", cfg.Apify.Token},
		{"vision.vertex.credentialsFile", cfg.Vision.Vertex.CredentialsFile},
		{"vision.gemini.apiKey", cfg.Vision.Gemini.APIKey},
		{"vision.claude.apiKey", cfg.Vision.Claude.APIKey},
		{"llm.openai.apiKey", cfg.LLM.OpenAI.APIKey},
		{"llm.anthropic.apiKey", cfg.LLM.Anthropic.APIKey},
		{"llm.google.apiKey", cfg.LLM.Google.APIKey},
	}

	out := make([]CredentialStatus, 0, len(creds))
	for _, c := range creds {
		out = append(out, CredentialStatus{
			Name:    c.name,
			Present: c.value != "",
			Length:  len(c.value),
		})
	}
	return out
}
