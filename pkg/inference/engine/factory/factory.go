package factory

import (
	"github.com/go-go-golems/chatbot/pkg/inference/engine"
	"github.com/go-go-golems/chatbot/pkg/inference/middleware"
	"github.com/go-go-golems/chatbot/pkg/metrics"
	"github.com/go-go-golems/chatbot/pkg/steps/ai/openai"
	"github.com/go-go-golems/chatbot/pkg/steps/ai/settings"
	"github.com/pkg/errors"
)

// EngineFactory creates inference engines bound to the model selected by the
// chat settings. Creating an engine is the only place where a missing
// credential or an invalid setting is noticed; such failures are returned as
// *engine.ConfigurationError.
type EngineFactory interface {
	CreateEngine(chat settings.ChatSettings) (engine.Engine, error)
}

// EngineFactoryFunc adapts a function to the EngineFactory interface.
type EngineFactoryFunc func(chat settings.ChatSettings) (engine.Engine, error)

func (f EngineFactoryFunc) CreateEngine(chat settings.ChatSettings) (engine.Engine, error) {
	return f(chat)
}

// NewStaticEngineFactory returns a factory that always hands out e, whatever
// model is asked for.
func NewStaticEngineFactory(e engine.Engine) EngineFactory {
	return EngineFactoryFunc(func(settings.ChatSettings) (engine.Engine, error) {
		return e, nil
	})
}

// StandardEngineFactory builds OpenAI engines from a fixed set of API settings.
type StandardEngineFactory struct {
	API         *settings.APISettings
	Options     []engine.Option
	Middlewares []middleware.Middleware
	Metrics     *metrics.Metrics
}

type FactoryOption func(*StandardEngineFactory)

// WithEngineOptions passes options (event sinks) to every created engine.
func WithEngineOptions(options ...engine.Option) FactoryOption {
	return func(f *StandardEngineFactory) {
		f.Options = append(f.Options, options...)
	}
}

// WithMiddlewares wraps every created engine, first middleware outermost.
func WithMiddlewares(middlewares ...middleware.Middleware) FactoryOption {
	return func(f *StandardEngineFactory) {
		f.Middlewares = append(f.Middlewares, middlewares...)
	}
}

// WithMetrics records every inference of the created engines in m.
func WithMetrics(m *metrics.Metrics) FactoryOption {
	return func(f *StandardEngineFactory) {
		f.Metrics = m
	}
}

// NewStandardEngineFactory never fails: the API settings are only looked at
// when an engine is created.
func NewStandardEngineFactory(api *settings.APISettings, options ...FactoryOption) *StandardEngineFactory {
	f := &StandardEngineFactory{API: api.Clone()}
	for _, o := range options {
		o(f)
	}
	return f
}

func (f *StandardEngineFactory) SupportedProviders() []string {
	return []string{openai.ProviderName}
}

func (f *StandardEngineFactory) DefaultProvider() string {
	return openai.ProviderName
}

func (f *StandardEngineFactory) CreateEngine(chat settings.ChatSettings) (engine.Engine, error) {
	if err := chat.Validate(); err != nil {
		return nil, engine.NewConfigurationError(errors.Wrap(err, "invalid chat settings"))
	}

	e, err := openai.NewOpenAIEngine(chat, f.API, f.Options...)
	if err != nil {
		return nil, engine.NewConfigurationError(errors.Wrapf(err, "could not create %s engine", f.DefaultProvider()))
	}

	middlewares := f.Middlewares
	if f.Metrics != nil {
		middlewares = append(append([]middleware.Middleware{}, middlewares...), middleware.NewMetricsMiddleware(f.Metrics, chat.ModelIdentifier))
	}
	if len(middlewares) == 0 {
		return e, nil
	}
	return middleware.NewEngineWithMiddleware(e, middlewares...), nil
}

var _ EngineFactory = (*StandardEngineFactory)(nil)
