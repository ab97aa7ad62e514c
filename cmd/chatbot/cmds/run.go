package cmds

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/go-go-golems/chatbot/pkg/conversation"
	"github.com/go-go-golems/chatbot/pkg/events"
	"github.com/go-go-golems/chatbot/pkg/graph"
	"github.com/go-go-golems/chatbot/pkg/inference/engine"
	"github.com/go-go-golems/chatbot/pkg/inference/engine/factory"
	"github.com/go-go-golems/chatbot/pkg/inference/middleware"
	"github.com/go-go-golems/chatbot/pkg/steps/ai/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

const eventsTopic = "chat"

type RunSettings struct {
	User        []string
	System      string
	Input       string
	Set         map[string]string
	Model       string
	Output      string
	PrintEvents bool
	RawEvents   bool
	Verbose     bool
}

func newRunCmd(app *App) *cobra.Command {
	s := &RunSettings{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Send a conversation to the model and print it with the reply appended",
		RunE: func(cmd *cobra.Command, args []string) error {
			s.Verbose = app.Viper.GetBool("verbose")
			return app.run(cmd.Context(), s, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringArrayVarP(&s.User, "user", "u", nil, "user message, can be repeated")
	cmd.Flags().StringVar(&s.System, "system", "", "system message put before the conversation")
	cmd.Flags().StringVarP(&s.Input, "input", "i", "", "YAML file with messages and configuration_overrides")
	cmd.Flags().StringToStringVar(&s.Set, "set", nil, "configuration override key=value, can be repeated")
	cmd.Flags().StringVarP(&s.Model, "model", "m", "", "shorthand for --set model_identifier=MODEL")
	cmd.Flags().StringVarP(&s.Output, "output", "o", "yaml", "output format (yaml, json)")
	cmd.Flags().BoolVar(&s.PrintEvents, "print-events", false, "print inference events to stderr")
	cmd.Flags().BoolVar(&s.RawEvents, "raw-events", false, "print events as JSON instead, implies --print-events")

	return cmd
}

// LoadInput reads an invocation input from a YAML (or JSON) file.
func LoadInput(path string) (graph.Input, error) {
	var input graph.Input
	b, err := os.ReadFile(path)
	if err != nil {
		return input, errors.Wrapf(err, "could not read input %s", path)
	}
	if err := yaml.Unmarshal(b, &input); err != nil {
		return input, errors.Wrapf(err, "could not parse input %s", path)
	}
	return input, nil
}

// buildInput assembles the invocation input. Overrides are applied in order:
// config file, input file, --set, --model.
func (s *RunSettings) buildInput(base map[string]string) (graph.Input, error) {
	input := graph.Input{}
	if s.Input != "" {
		var err error
		input, err = LoadInput(s.Input)
		if err != nil {
			return input, err
		}
	}

	messages := make([]conversation.Message, 0, len(input.Messages)+len(s.User)+1)
	if s.System != "" {
		messages = append(messages, conversation.NewSystemMessage(s.System))
	}
	messages = append(messages, input.Messages...)
	for _, u := range s.User {
		messages = append(messages, conversation.NewUserMessage(u))
	}

	overrides := map[string]string{}
	for _, m := range []map[string]string{base, input.ConfigurationOverrides, s.Set} {
		for k, v := range m {
			overrides[k] = v
		}
	}
	if s.Model != "" {
		overrides[settings.ModelIdentifierKey] = s.Model
	}

	return graph.Input{Messages: messages, ConfigurationOverrides: overrides}, nil
}

func (a *App) newFactory(options ...factory.FactoryOption) *factory.StandardEngineFactory {
	middlewares := []middleware.Middleware{middleware.NewLoggingMiddleware(log.Logger)}
	if prompt := a.Viper.GetString(SystemPromptKey); prompt != "" {
		middlewares = append(middlewares, middleware.NewSystemPromptMiddleware(prompt))
	}
	options = append([]factory.FactoryOption{factory.WithMiddlewares(middlewares...)}, options...)
	return factory.NewStandardEngineFactoryFromViper(a.Viper, options...)
}

func (a *App) run(ctx context.Context, s *RunSettings, stdout io.Writer, stderr io.Writer) error {
	if s.Output != "yaml" && s.Output != "json" && s.Output != "" {
		return errors.Errorf("unknown output format %s", s.Output)
	}
	input, err := s.buildInput(a.configOverrides())
	if err != nil {
		return err
	}

	var out *graph.Output
	if s.PrintEvents || s.RawEvents {
		out, err = a.invokeWithEvents(ctx, input, stderr, s.RawEvents, s.Verbose)
	} else {
		var g *graph.Graph
		g, err = graph.NewChatbotGraph(a.newFactory())
		if err != nil {
			return err
		}
		out, err = g.Invoke(ctx, input)
	}
	if err != nil {
		return err
	}

	return writeOutput(stdout, s.Output, out)
}

// invokeWithEvents runs the graph while an event router prints the engine
// events to w.
func (a *App) invokeWithEvents(ctx context.Context, input graph.Input, w io.Writer, raw bool, verbose bool) (*graph.Output, error) {
	router, err := events.NewEventRouter(events.WithVerbose(verbose), events.WithOutput(w))
	if err != nil {
		return nil, err
	}
	if raw {
		router.AddHandler("raw", eventsTopic, router.DumpRawEvents)
	} else {
		router.AddHandler("printer", eventsTopic, events.StepPrinterFunc("assistant", w, verbose))
	}

	g, err := graph.NewChatbotGraph(a.newFactory(
		factory.WithEngineOptions(engine.WithSink(router.Sink(eventsTopic))),
	))
	if err != nil {
		return nil, err
	}

	var out *graph.Output
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return router.Run(ctx)
	})
	eg.Go(func() error {
		defer func() {
			_ = router.Close()
		}()
		select {
		case <-router.Running():
		case <-ctx.Done():
			return ctx.Err()
		}
		var err error
		out, err = g.Invoke(ctx, input)
		return err
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func writeOutput(w io.Writer, format string, out *graph.Output) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		return enc.Close()
	default:
		return errors.Errorf("unknown output format %s", format)
	}
}
