package ingest

// GmailConfig holds configuration for the Gmail message source.
type GmailConfig struct {
	// BaseURL is the Gmail REST endpoint.
	BaseURL string `mapstructure:"base_url" default:"https://gmail.googleapis.com/gmail/v1"`
	// Token is the OAuth bearer token used for every request.
	Token string `mapstructure:"token" default:""`
	// Query selects which messages to process.
	Query string `mapstructure:"query" default:"label:job-applications"`
	// MaxResults caps how many messages one run fetches.
	MaxResults int `mapstructure:"max_results" default:"50"`
	// TimeoutSeconds bounds each API request.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// Retries is how many times a failed request is retried.
	Retries int `mapstructure:"retries" default:"3"`
}

// ClassifierConfig holds configuration for the LLM extraction client. Any
// OpenAI-compatible chat-completions endpoint works.
type ClassifierConfig struct {
	BaseURL string `mapstructure:"base_url" default:"https://api.openai.com/v1"`
	APIKey  string `mapstructure:"api_key" default:""`
	Model   string `mapstructure:"model" default:"gpt-4o-mini"`
	// TimeoutSeconds bounds each extraction request.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"60"`
}

// Config holds configuration for the processing loop.
type Config struct {
	// MarkAsRead removes the UNREAD label from processed messages.
	MarkAsRead bool `mapstructure:"mark_as_read" default:"true"`
	// ArchivePrefix is the object-name prefix for raw message archives. Raw
	// messages are only archived when the storage feature is enabled.
	ArchivePrefix string `mapstructure:"archive_prefix" default:"raw-emails/"`
}
