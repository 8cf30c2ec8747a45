// internal/intent/classifier/config.go
package classifier

import "time"

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		BaseURL: "https://generativelanguage.googleapis.com",
		Model:   "gemini-1.5-flash",
		Timeout: 60 * time.Second,
	}
}
