package facts

import (
	"context"
	"fmt"

	"github.com/openfroyo/jbossfacts/pkg/telemetry"
)

// Gather runs every collector once and registers what they produce.
//
// A failing collector is logged and skipped; its facts are simply absent.
// Conflicting fact names between collectors are a programming error and
// are returned.
func Gather(ctx context.Context, collectors ...Collector) (*Set, error) {
	op := telemetry.StartOperation(ctx, "facts.gather")
	set := NewSet()

	for _, c := range collectors {
		logger := op.Logger.NewComponentLogger(c.Name())

		defs, err := c.Collect(op.Ctx)
		if err != nil {
			logger.WithError(err).Warn("Collector failed, skipping its facts")
			continue
		}

		if err := set.Add(defs...); err != nil {
			err = fmt.Errorf("collector %s: %w", c.Name(), err)
			op.End(err)
			return nil, err
		}

		logger.WithField("facts", len(defs)).Debug("Collector registered facts")
	}

	if tel := telemetry.FromTelemetryContext(ctx); tel != nil {
		tel.Metrics.SetFactsPublished(float64(set.Len()))
	}

	op.End(nil)
	return set, nil
}
