package factory

import (
	"github.com/go-go-golems/chatbot/pkg/steps/ai/settings"
	"github.com/spf13/viper"
)

// NewStandardEngineFactoryFromViper reads the API settings from v and returns
// a factory using them.
func NewStandardEngineFactoryFromViper(v *viper.Viper, options ...FactoryOption) *StandardEngineFactory {
	return NewStandardEngineFactory(settings.NewAPISettingsFromViper(v), options...)
}
