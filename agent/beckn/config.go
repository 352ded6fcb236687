package beckn

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config carries every network identifier for the commerce gateway. Routing
// ids are deliberately configuration, never code literals, so one binary can
// point at any Beckn sandbox or production network.
type Config struct {
	BaseURL string `envconfig:"BASE_URL" split_words:"true" required:"true"`

	BapID  string `envconfig:"BAP_ID" split_words:"true" required:"true"`
	BapURI string `envconfig:"BAP_URI" split_words:"true" required:"true"`
	BppID  string `envconfig:"BPP_ID" split_words:"true" required:"true"`
	BppURI string `envconfig:"BPP_URI" split_words:"true" required:"true"`

	Version     string `envconfig:"VERSION" split_words:"true" default:"1.1.0"`
	CountryCode string `envconfig:"COUNTRY_CODE" split_words:"true" default:"USA"`
	CityCode    string `envconfig:"CITY_CODE" split_words:"true" default:"NANP:628"`

	// Network domain values sent on the wire for each conversational domain.
	RetailDomain  string `envconfig:"RETAIL_DOMAIN" split_words:"true" default:"deg:retail"`
	SchemesDomain string `envconfig:"SCHEMES_DOMAIN" split_words:"true" default:"deg:schemes"`

	// Placeholder customer data for confirm; a real deployment sources this
	// from the authenticated user.
	CustomerName  string `envconfig:"CUSTOMER_NAME" split_words:"true" default:"Lisa"`
	CustomerPhone string `envconfig:"CUSTOMER_PHONE" split_words:"true" default:"876756454"`
	CustomerEmail string `envconfig:"CUSTOMER_EMAIL" split_words:"true" default:"LisaS@mailinator.com"`

	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"15s"`
}

func (c Config) Validate() error {
	baseURL := strings.TrimSpace(c.BaseURL)
	if baseURL == "" {
		return errors.New("beckn base url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return fmt.Errorf("invalid beckn base url: %w", err)
	}
	if strings.TrimSpace(c.BapID) == "" || strings.TrimSpace(c.BapURI) == "" {
		return errors.New("bap routing identifiers are required")
	}
	if strings.TrimSpace(c.BppID) == "" || strings.TrimSpace(c.BppURI) == "" {
		return errors.New("bpp routing identifiers are required")
	}
	return nil
}
