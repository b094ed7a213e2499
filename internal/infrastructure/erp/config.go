package erp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/portal/backend/internal/infrastructure/config"
)

// Config validation errors
var (
	ErrConfigMissingAccount        = errors.New("erp: account id is required")
	ErrConfigMissingConsumerKey    = errors.New("erp: consumer key is required")
	ErrConfigMissingConsumerSecret = errors.New("erp: consumer secret is required")
	ErrConfigMissingTokenID        = errors.New("erp: token id is required")
	ErrConfigMissingTokenSecret    = errors.New("erp: token secret is required")
)

const (
	defaultTimeoutSeconds = 30
	queryPath             = "/services/rest/query/v1/suiteql"
	restletPath           = "/app/site/hosting/restlet.nl"
)

// Config holds the token-based credentials for the ERP account
type Config struct {
	AccountID      string
	ConsumerKey    string
	ConsumerSecret string
	TokenID        string
	TokenSecret    string

	// QueryURL and RestletURL override the hosts derived from AccountID
	QueryURL   string
	RestletURL string

	TimeoutSeconds int
}

// FromAppConfig copies the erp section of the application config
func FromAppConfig(c config.ERPConfig) *Config {
	return &Config{
		AccountID:      c.AccountID,
		ConsumerKey:    c.ConsumerKey,
		ConsumerSecret: c.ConsumerSecret,
		TokenID:        c.TokenID,
		TokenSecret:    c.TokenSecret,
		QueryURL:       c.QueryURL,
		RestletURL:     c.RestletURL,
		TimeoutSeconds: c.TimeoutSeconds,
	}
}

// Validate checks required fields and fills defaults
func (c *Config) Validate() error {
	if c.AccountID == "" {
		return ErrConfigMissingAccount
	}
	if c.ConsumerKey == "" {
		return ErrConfigMissingConsumerKey
	}
	if c.ConsumerSecret == "" {
		return ErrConfigMissingConsumerSecret
	}
	if c.TokenID == "" {
		return ErrConfigMissingTokenID
	}
	if c.TokenSecret == "" {
		return ErrConfigMissingTokenSecret
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.QueryURL == "" {
		c.QueryURL = fmt.Sprintf("https://%s.suitetalk.api.netsuite.com%s", c.hostPrefix(), queryPath)
	}
	if c.RestletURL == "" {
		c.RestletURL = fmt.Sprintf("https://%s.restlets.api.netsuite.com%s", c.hostPrefix(), restletPath)
	}
	return nil
}

// hostPrefix turns an account id like 1234567_SB1 into the DNS label 1234567-sb1
func (c *Config) hostPrefix() string {
	return strings.ToLower(strings.ReplaceAll(c.AccountID, "_", "-"))
}
