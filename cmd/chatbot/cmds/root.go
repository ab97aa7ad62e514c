package cmds

import (
	"io"
	"os"

	"github.com/go-go-golems/chatbot/pkg/steps/ai/settings"
	clay "github.com/go-go-golems/clay/pkg"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const AppName = "chatbot"

const SystemPromptKey = "system-prompt"

// App is shared by all subcommands. Its viper instance holds the merged
// config file, environment and root flags.
type App struct {
	Viper *viper.Viper
}

// NewRootCmd builds the command tree. Config file, environment and the
// logging flags go through the global viper instance set up by clay.
func NewRootCmd() (*cobra.Command, error) {
	app := &App{Viper: viper.GetViper()}
	root := &cobra.Command{
		Use:           AppName,
		Short:         "chatbot - append a model reply to a conversation",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// clay only scans os.Args for --config
			if f := cmd.Flags().Lookup("config"); f != nil && f.Changed {
				if err := clay.InitViperWithAppName(AppName, f.Value.String()); err != nil {
					return errors.Wrap(err, "could not read config file")
				}
			}
			if err := clay.InitLogger(); err != nil {
				return err
			}
			disableColorWhenPiped(app.Viper)
			settings.BindAPIEnv(app.Viper)
			if file := app.Viper.ConfigFileUsed(); file != "" {
				log.Debug().Str("file", file).Msg("loaded config file")
			}
			return nil
		},
	}

	if err := clay.InitViper(AppName, root); err != nil {
		return nil, errors.Wrap(err, "could not initialize config")
	}

	root.AddCommand(newRunCmd(app))
	root.AddCommand(newConfigCmd(app))
	root.AddCommand(newServeCmd(app))
	return root, nil
}

// disableColorWhenPiped swaps the console writer for a colorless one when
// stderr is not a terminal.
func disableColorWhenPiped(v *viper.Viper) {
	if v.GetString("log-format") != "text" || v.GetString("log-file") != "" {
		return
	}
	if isTerminal(os.Stderr) {
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// configOverrides returns the configuration overrides set in the config
// file or environment.
func (a *App) configOverrides() map[string]string {
	ret := map[string]string{}
	if m := a.Viper.GetString(settings.ModelIdentifierKey); m != "" {
		ret[settings.ModelIdentifierKey] = m
	}
	return ret
}
