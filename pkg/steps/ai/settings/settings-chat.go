package settings

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// DefaultModelIdentifier is the model used when no override selects another one.
const DefaultModelIdentifier = "gpt-3.5-turbo"

const ModelIdentifierKey = "model_identifier"

// ChatSettings selects the hosted model a conversation is sent to.
//
// It only holds identifiers, never a live client, so it stays comparable and
// serializable. Building the client is the job of the engine factory.
type ChatSettings struct {
	ModelIdentifier string `yaml:"model_identifier" json:"model_identifier" mapstructure:"model_identifier"`
}

func NewChatSettings() ChatSettings {
	return ChatSettings{ModelIdentifier: DefaultModelIdentifier}
}

// NewChatSettingsFromOverrides merges overrides over the defaults.
//
// Only the exact key model_identifier is read. Every other key, including
// case variants of it, is dropped, so callers can pass a map that also
// carries configuration for other subsystems. Empty values count as absent.
func NewChatSettingsFromOverrides(overrides map[string]string) (ChatSettings, error) {
	v := viper.New()
	v.SetDefault(ModelIdentifierKey, DefaultModelIdentifier)

	// viper folds key case, so filtering happens before the merge
	if val := overrides[ModelIdentifierKey]; val != "" {
		m := map[string]interface{}{ModelIdentifierKey: val}
		if err := v.MergeConfigMap(m); err != nil {
			return ChatSettings{}, errors.Wrap(err, "could not merge configuration overrides")
		}
	}

	s := ChatSettings{}
	if err := v.Unmarshal(&s); err != nil {
		return ChatSettings{}, errors.Wrap(err, "could not decode chat settings")
	}
	return s, nil
}

// ToOverrides returns the override map that resolves back to s.
func (s ChatSettings) ToOverrides() map[string]string {
	return map[string]string{
		ModelIdentifierKey: s.ModelIdentifier,
	}
}

func (s ChatSettings) Validate() error {
	if s.ModelIdentifier == "" {
		return errors.New("model identifier cannot be empty")
	}
	return nil
}
