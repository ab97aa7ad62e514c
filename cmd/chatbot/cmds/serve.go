package cmds

import (
	"context"

	"github.com/go-go-golems/chatbot/pkg/events"
	"github.com/go-go-golems/chatbot/pkg/graph"
	"github.com/go-go-golems/chatbot/pkg/helpers"
	"github.com/go-go-golems/chatbot/pkg/inference/engine"
	"github.com/go-go-golems/chatbot/pkg/inference/engine/factory"
	"github.com/go-go-golems/chatbot/pkg/metrics"
	"github.com/go-go-golems/chatbot/pkg/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type ServeSettings struct {
	Addr      string
	LogEvents bool
}

func newServeCmd(app *App) *cobra.Command {
	s := &ServeSettings{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chatbot over HTTP (POST /invoke)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.serve(cmd.Context(), s)
		},
	}
	cmd.Flags().StringVar(&s.Addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&s.LogEvents, "log-events", true, "log every inference event")
	return cmd
}

func (a *App) serve(ctx context.Context, s *ServeSettings) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		return err
	}

	factoryOptions := []factory.FactoryOption{factory.WithMetrics(m)}

	var router *events.EventRouter
	if s.LogEvents {
		router, err = events.NewEventRouter(events.WithLogger(helpers.NewWatermill(log.Logger)))
		if err != nil {
			return err
		}
		router.AddHandler("log", eventsTopic, events.NewLogHandler(log.Logger))
		factoryOptions = append(factoryOptions, factory.WithEngineOptions(engine.WithSink(router.Sink(eventsTopic))))
	}

	g, err := graph.NewChatbotGraph(a.newFactory(factoryOptions...), graph.WithMetrics(m))
	if err != nil {
		return err
	}
	srv := server.New(g, server.WithMetrics(m))

	eg, ctx := errgroup.WithContext(ctx)
	if router != nil {
		eg.Go(func() error {
			return router.Run(ctx)
		})
		eg.Go(func() error {
			<-ctx.Done()
			return router.Close()
		})
	}
	eg.Go(func() error {
		if router != nil {
			select {
			case <-router.Running():
			case <-ctx.Done():
				return nil
			}
		}
		return srv.ListenAndServe(ctx, s.Addr)
	})

	return eg.Wait()
}
