package llm

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/shreyvishal/beckn-deg-bot/agent/contract"
	openrouterx "github.com/shreyvishal/beckn-deg-bot/pkg/openrouter"
)

// Config resolves one OpenRouter model config per component role. The
// classifiers default to temperature 0 so category tokens stay deterministic;
// the responder gets a warmer default.
type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	IntentModel          string  `envconfig:"INTENT_MODEL" split_words:"true"`
	DomainModel          string  `envconfig:"DOMAIN_MODEL" split_words:"true"`
	ResponderModel       string  `envconfig:"RESPONDER_MODEL" split_words:"true"`
	IntentTemperature    float32 `envconfig:"INTENT_TEMPERATURE" split_words:"true" default:"0"`
	DomainTemperature    float32 `envconfig:"DOMAIN_TEMPERATURE" split_words:"true" default:"0"`
	ResponderTemperature float32 `envconfig:"RESPONDER_TEMPERATURE" split_words:"true" default:"0.6"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.New("openrouter api key is required")
	}
	if strings.TrimSpace(c.Model) == "" {
		return errors.New("default model is required")
	}
	return nil
}

// OpenRouterFor returns the model config for a component role, applying
// per-role model and temperature overrides on top of the defaults.
func (c Config) OpenRouterFor(role contractx.ModelRole) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	var temp float32

	switch role {
	case contractx.ModelRoleIntent:
		if v := strings.TrimSpace(c.IntentModel); v != "" {
			modelName = v
		}
		temp = c.IntentTemperature
	case contractx.ModelRoleDomain:
		if v := strings.TrimSpace(c.DomainModel); v != "" {
			modelName = v
		}
		temp = c.DomainTemperature
	case contractx.ModelRoleResponder:
		if v := strings.TrimSpace(c.ResponderModel); v != "" {
			modelName = v
		}
		temp = c.ResponderTemperature
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
