package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/go-go-golems/chatbot/pkg/conversation"
	"github.com/go-go-golems/chatbot/pkg/events"
	"github.com/go-go-golems/chatbot/pkg/inference/engine"
	"github.com/go-go-golems/chatbot/pkg/metrics"
	"github.com/go-go-golems/chatbot/pkg/steps/ai/settings"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	Start = "__start__"
	End   = "__end__"
)

var (
	ErrInvalidTopology = errors.New("invalid graph topology")
	ErrInvalidInput    = errors.New("invalid input")
)

// InputError reports messages that cannot be sent to the completion service.
type InputError struct {
	Err error
}

func (e *InputError) Error() string {
	return "invalid input: " + e.Err.Error()
}

func (e *InputError) Unwrap() error {
	return e.Err
}

func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NodeFunc transforms the conversation state. It must not modify the state
// it is given.
type NodeFunc func(ctx context.Context, state conversation.State, cfg settings.ChatSettings) (conversation.State, error)

// Input is what a caller hands to Graph.Invoke.
type Input struct {
	Messages               []conversation.Message `json:"messages" yaml:"messages"`
	ConfigurationOverrides map[string]string      `json:"configuration_overrides,omitempty" yaml:"configuration_overrides,omitempty"`
}

type Output struct {
	Messages []conversation.Message `json:"messages" yaml:"messages"`
}

// Builder collects nodes and edges. The first error encountered is kept and
// returned by Compile.
type Builder struct {
	nodes map[string]NodeFunc
	names []string
	edges map[string][]string
	err   error
}

func NewBuilder() *Builder {
	return &Builder{
		nodes: map[string]NodeFunc{},
		edges: map[string][]string{},
	}
}

func (b *Builder) AddNode(name string, fn NodeFunc) *Builder {
	if b.err != nil {
		return b
	}
	switch {
	case name == "":
		b.err = errors.Wrap(ErrInvalidTopology, "node name cannot be empty")
	case name == Start || name == End:
		b.err = errors.Wrapf(ErrInvalidTopology, "node name %s is reserved", name)
	case fn == nil:
		b.err = errors.Wrapf(ErrInvalidTopology, "node %s has no function", name)
	default:
		if _, ok := b.nodes[name]; ok {
			b.err = errors.Wrapf(ErrInvalidTopology, "node %s already exists", name)
			return b
		}
		b.nodes[name] = fn
		b.names = append(b.names, name)
	}
	return b
}

func (b *Builder) AddEdge(from, to string) *Builder {
	if b.err != nil {
		return b
	}
	b.edges[from] = append(b.edges[from], to)
	return b
}

// Compile checks that the edges form a single path from Start through every
// node to End and returns the resulting graph.
func (b *Builder) Compile(name string, options ...Option) (*Graph, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.nodes) == 0 {
		return nil, errors.Wrap(ErrInvalidTopology, "graph has no nodes")
	}

	for from, targets := range b.edges {
		if from == End {
			return nil, errors.Wrapf(ErrInvalidTopology, "%s cannot have outgoing edges", End)
		}
		if _, ok := b.nodes[from]; !ok && from != Start {
			return nil, errors.Wrapf(ErrInvalidTopology, "edge from unknown node %s", from)
		}
		if len(targets) > 1 {
			return nil, errors.Wrapf(ErrInvalidTopology, "node %s has %d outgoing edges", from, len(targets))
		}
		to := targets[0]
		if to == Start {
			return nil, errors.Wrapf(ErrInvalidTopology, "edge %s -> %s points to %s", from, to, Start)
		}
		if _, ok := b.nodes[to]; !ok && to != End {
			return nil, errors.Wrapf(ErrInvalidTopology, "edge to unknown node %s", to)
		}
	}

	path := make([]node, 0, len(b.nodes))
	visited := map[string]bool{}
	current := Start
	for {
		targets, ok := b.edges[current]
		if !ok {
			return nil, errors.Wrapf(ErrInvalidTopology, "node %s has no outgoing edge", current)
		}
		next := targets[0]
		if next == End {
			break
		}
		if visited[next] {
			return nil, errors.Wrapf(ErrInvalidTopology, "cycle through node %s", next)
		}
		visited[next] = true
		path = append(path, node{name: next, fn: b.nodes[next]})
		current = next
	}

	for _, n := range b.names {
		if !visited[n] {
			return nil, errors.Wrapf(ErrInvalidTopology, "node %s is not reachable from %s", n, Start)
		}
	}

	g := &Graph{name: name, path: path}
	for _, o := range options {
		o(g)
	}
	return g, nil
}

type node struct {
	name string
	fn   NodeFunc
}

type Option func(*Graph)

// WithMetrics counts every invocation of the graph in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Graph) {
		g.metrics = m
	}
}

// WithEventSinks attaches sinks to the context of every invocation, so that
// engines publish their events to them.
func WithEventSinks(sinks ...events.EventSink) Option {
	return func(g *Graph) {
		g.sinks = append(g.sinks, sinks...)
	}
}

// Graph is a compiled, linear flow. It holds no per-invocation state and can
// be invoked concurrently.
type Graph struct {
	name    string
	path    []node
	metrics *metrics.Metrics
	sinks   []events.EventSink
}

func (g *Graph) Name() string {
	return g.name
}

// Nodes returns the node names in execution order, without Start and End.
func (g *Graph) Nodes() []string {
	ret := make([]string, 0, len(g.path))
	for _, n := range g.path {
		ret = append(ret, n.name)
	}
	return ret
}

func (g *Graph) String() string {
	return fmt.Sprintf("%s(%s -> %v -> %s)", g.name, Start, g.Nodes(), End)
}

// Invoke runs input through every node in order. On failure the error of the
// failing node is returned unchanged and no output is produced.
func (g *Graph) Invoke(ctx context.Context, input Input) (*Output, error) {
	out, err := g.invoke(ctx, input)
	if g.metrics != nil {
		g.metrics.ObserveInvocation(err)
	}
	return out, err
}

func (g *Graph) invoke(ctx context.Context, input Input) (*Output, error) {
	cfg, err := settings.NewChatSettingsFromOverrides(input.ConfigurationOverrides)
	if err != nil {
		return nil, engine.NewConfigurationError(err)
	}

	state := conversation.NewState(input.Messages...)
	if err := state.Validate(); err != nil {
		return nil, &InputError{Err: err}
	}

	runID := events.RunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.New().String()
		ctx = events.WithRunID(ctx, runID)
	}
	for _, sink := range g.sinks {
		ctx = events.WithEventSinks(ctx, sink)
	}

	logger := log.With().Str("graph", g.name).Str("run_id", runID).Str("model", cfg.ModelIdentifier).Logger()
	logger.Debug().Int("num_messages", state.Len()).Msg("invocation started")
	start := time.Now()

	for _, n := range g.path {
		next, err := n.fn(ctx, state, cfg)
		if err != nil {
			logger.Error().Err(err).Str("node", n.name).Msg("node failed")
			return nil, err
		}
		state = next
	}

	logger.Debug().
		Int("num_messages", state.Len()).
		Dur("duration", time.Since(start)).
		Msg("invocation completed")

	return &Output{Messages: state.Messages}, nil
}
