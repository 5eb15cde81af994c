package types

import "time"

// HTTPConfig holds shared HTTP settings used by every component that
// fetches remote content (connectors and the file downloader).
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "CivicWatchdog/1.0 (contact@example.com)").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries is the number of attempts for retryable failures (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RequestsPerSecond caps the request rate per network domain (default 1.0).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`

	// AllowedDomain, when set, restricts fetches to this domain and its
	// subdomains. Empty means any public domain.
	AllowedDomain string `json:"allowed_domain,omitempty" yaml:"allowed_domain,omitempty"`
}

// StorageConfig holds database and file storage locations.
type StorageConfig struct {
	// DatabasePath is the SQLite database file (e.g. "watchdog.db").
	DatabasePath string `json:"database_path" yaml:"database_path"`

	// FilesDir is the root directory for downloaded documents. Stored file
	// paths are always relative to this root.
	FilesDir string `json:"files_dir" yaml:"files_dir"`
}

// LLMConfig holds settings for the stages that call the language model API.
type LLMConfig struct {
	// APIKey authenticates against the model API. Supplied via environment
	// or the secrets directory, never via the config file.
	APIKey string `json:"-" yaml:"-"`

	// TriageModel is the model used for relevance triage (default "gpt-4o-mini").
	TriageModel string `json:"triage_model" yaml:"triage_model"`

	// CaseModel is the model used for case construction (default "gpt-4o").
	CaseModel string `json:"case_model" yaml:"case_model"`

	// TriageMaxTokens is the input token budget for triage; document text is
	// truncated to roughly three characters per token (default 4000).
	TriageMaxTokens int `json:"triage_max_tokens" yaml:"triage_max_tokens"`

	// CaseMaxTokens is the input token budget for case building (default 8000).
	CaseMaxTokens int `json:"case_max_tokens" yaml:"case_max_tokens"`

	// MonthlyBudgetEUR is the advisory monthly spend ceiling reported by
	// stats; calls are ledgered against it but not blocked (default 10.0).
	MonthlyBudgetEUR float64 `json:"monthly_budget_eur" yaml:"monthly_budget_eur"`
}

// ExtractionConfig holds settings for the text extraction stage.
type ExtractionConfig struct {
	// OCRLanguage is the tesseract language pack for scanned documents
	// (default "fin").
	OCRLanguage string `json:"ocr_language" yaml:"ocr_language"`
}

// AdminConfig holds settings for the admin/status HTTP server.
type AdminConfig struct {
	// Token guards the admin API. Unset disables admin access entirely.
	// Supplied via environment or the secrets directory only.
	Token string `json:"-" yaml:"-"`

	// ListenAddr is the bind address for the status server (default ":8600").
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`
}

// Config groups all component configurations. It is built once at process
// start and passed by reference into every component that needs it.
type Config struct {
	HTTP       HTTPConfig       `json:"http" yaml:"http"`
	Storage    StorageConfig    `json:"storage" yaml:"storage"`
	LLM        LLMConfig        `json:"llm" yaml:"llm"`
	Extraction ExtractionConfig `json:"extraction" yaml:"extraction"`
	Admin      AdminConfig      `json:"admin" yaml:"admin"`
}
