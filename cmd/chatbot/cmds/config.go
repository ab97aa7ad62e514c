package cmds

import (
	"time"

	"github.com/go-go-golems/chatbot/pkg/steps/ai/settings"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type apiView struct {
	APIKeySet    bool           `yaml:"api_key_set"`
	BaseURL      string         `yaml:"base_url,omitempty"`
	Organization string         `yaml:"organization,omitempty"`
	Timeout      *time.Duration `yaml:"timeout,omitempty"`
}

type resolvedConfig struct {
	ConfigFile   string                `yaml:"config_file,omitempty"`
	Chat         settings.ChatSettings `yaml:"chat"`
	Overrides    map[string]string     `yaml:"configuration_overrides"`
	API          apiView               `yaml:"api"`
	SystemPrompt string                `yaml:"system_prompt,omitempty"`
}

func newConfigCmd(app *App) *cobra.Command {
	var set map[string]string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration, without the API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := app.configOverrides()
			for k, v := range set {
				overrides[k] = v
			}
			chat, err := settings.NewChatSettingsFromOverrides(overrides)
			if err != nil {
				return err
			}
			api := settings.NewAPISettingsFromViper(app.Viper)

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(resolvedConfig{
				ConfigFile: app.Viper.ConfigFileUsed(),
				Chat:       chat,
				Overrides:  chat.ToOverrides(),
				API: apiView{
					APIKeySet:    api.APIKey != "",
					BaseURL:      api.BaseURL,
					Organization: api.Organization,
					Timeout:      api.Timeout,
				},
				SystemPrompt: app.Viper.GetString(SystemPromptKey),
			}); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().StringToStringVar(&set, "set", nil, "configuration override key=value, can be repeated")
	return cmd
}
