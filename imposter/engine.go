package imposter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/imposterwatch/imposterwatch/jetstream"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("imposter")

// Engine ties the normalizer, registry, and dispatcher together for each event off the stream.
type Engine struct {
	Registry   *Registry
	Dispatcher *Dispatcher
	ListURI    string
	Logger     *slog.Logger
	// when set, verdicts are logged and counted but no records are created
	DryRun bool
}

// ProcessEvent handles a single decoded event. Events which are not actionable are ignored. A failed block action is
// logged and counted, then returned as *ActionError; it is never fatal to the stream.
func (eng *Engine) ProcessEvent(ctx context.Context, evt *jetstream.Event) (err error) {
	if !evt.Actionable() {
		return nil
	}

	logger := eng.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("did", evt.Did, "time_us", evt.TimeUS, "rkey", evt.Commit.RKey)

	// similar to an HTTP server, we want to recover any panics from matching or dispatch
	defer func() {
		if r := recover(); r != nil {
			eventPanics.Inc()
			logger.Error("event processing exception", "err", r)
			err = fmt.Errorf("event processing panic: %v", r)
		}
	}()

	ctx, span := tracer.Start(ctx, "ProcessEvent")
	defer span.End()
	span.SetAttributes(attribute.String("did", evt.Did))

	key := Normalize(evt.Commit.Record.DisplayName)
	verdict := eng.Registry.Match(evt.Did, key)
	if !verdict.ShouldBlock {
		eventsMatched.WithLabelValues("negative").Inc()
		return nil
	}
	eventsMatched.WithLabelValues("positive").Inc()

	name := verdict.MatchedKey
	if w, ok := eng.Registry.Lookup(verdict.MatchedKey); ok {
		name = w.Name
	}
	span.SetAttributes(attribute.String("matched_key", verdict.MatchedKey))
	logger.Info("blocking impersonator", "name", name, "displayName", evt.Commit.Record.DisplayName, "dryRun", eng.DryRun)

	if eng.DryRun {
		actionsTotal.WithLabelValues("dry_run").Inc()
		return nil
	}

	if err := eng.Dispatcher.Dispatch(ctx, evt.Did, eng.ListURI); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "block action failed")
		if errors.Is(err, context.Canceled) {
			actionsTotal.WithLabelValues("canceled").Inc()
		} else {
			actionsTotal.WithLabelValues("error").Inc()
		}
		logger.Error("failed to add impersonator to list", "name", name, "list", eng.ListURI, "err", err)
		return err
	}
	actionsTotal.WithLabelValues("ok").Inc()
	return nil
}
