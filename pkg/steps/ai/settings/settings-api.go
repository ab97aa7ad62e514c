package settings

import (
	"time"

	"github.com/spf13/viper"
)

const (
	OpenAIApiKeyKey       = "openai-api-key"
	OpenAIBaseUrlKey      = "openai-base-url"
	OpenAIOrganizationKey = "openai-organization"
	OpenAITimeoutKey      = "openai-timeout"
)

// APISettings holds the credentials and endpoint of the completion service.
// They are kept apart from ChatSettings so that secrets never travel with the
// per-invocation configuration.
type APISettings struct {
	APIKey       string         `yaml:"api_key,omitempty" json:"-"`
	BaseURL      string         `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	Organization string         `yaml:"organization,omitempty" json:"organization,omitempty"`
	Timeout      *time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

func NewAPISettings() *APISettings {
	return &APISettings{}
}

// BindAPIEnv binds the API keys of v to the usual OPENAI_* environment variables.
func BindAPIEnv(v *viper.Viper) {
	_ = v.BindEnv(OpenAIApiKeyKey, "OPENAI_API_KEY")
	_ = v.BindEnv(OpenAIBaseUrlKey, "OPENAI_BASE_URL")
	_ = v.BindEnv(OpenAIOrganizationKey, "OPENAI_ORGANIZATION")
	_ = v.BindEnv(OpenAITimeoutKey, "OPENAI_TIMEOUT")
}

// NewAPISettingsFromViper reads API settings from v. Missing values are left
// empty; whether they are required is decided when a client is built.
func NewAPISettingsFromViper(v *viper.Viper) *APISettings {
	s := &APISettings{
		APIKey:       v.GetString(OpenAIApiKeyKey),
		BaseURL:      v.GetString(OpenAIBaseUrlKey),
		Organization: v.GetString(OpenAIOrganizationKey),
	}
	if v.IsSet(OpenAITimeoutKey) {
		if d := v.GetDuration(OpenAITimeoutKey); d > 0 {
			s.Timeout = &d
		}
	}
	return s
}

func (s *APISettings) Clone() *APISettings {
	if s == nil {
		return nil
	}
	ret := *s
	if s.Timeout != nil {
		t := *s.Timeout
		ret.Timeout = &t
	}
	return &ret
}
