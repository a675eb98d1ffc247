package rates

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"valutahub/internal/errs"
	"valutahub/internal/metrics"
	"valutahub/internal/models"
)

// Aggregator fans the configured sources out in parallel and merges their
// results into one snapshot. Partial success is the default policy: a failing
// source is logged and skipped, and only when every targeted source fails
// does the refresh fail.
type Aggregator struct {
	sources []Source
	log     zerolog.Logger
	now     func() time.Time
}

func NewAggregator(sources []Source, log zerolog.Logger) *Aggregator {
	return &Aggregator{sources: sources, log: log, now: time.Now}
}

// Refresh fetches from every source whose name matches sourceFilter (all
// sources when the filter is empty). All fetches complete before the snapshot
// is composed; on key collision the later source in configured order wins.
func (a *Aggregator) Refresh(ctx context.Context, sourceFilter string) (models.RateSnapshot, error) {
	targeted := make([]Source, 0, len(a.sources))
	for _, source := range a.sources {
		if sourceFilter == "" || source.Name() == sourceFilter {
			targeted = append(targeted, source)
		}
	}
	if len(targeted) == 0 {
		return models.RateSnapshot{}, errs.AllSourcesUnavailable()
	}

	results := make([]map[string]decimal.Decimal, len(targeted))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, source := range targeted {
		i, source := i, source
		group.Go(func() error {
			quotes, err := source.Fetch(groupCtx)
			if err != nil {
				metrics.RateRefreshes.WithLabelValues(source.Name(), "error").Inc()
				a.log.Error().Err(err).Str("source", source.Name()).Msg("rate source fetch failed")
				return nil
			}
			metrics.RateRefreshes.WithLabelValues(source.Name(), "ok").Inc()
			a.log.Info().Str("source", source.Name()).Int("pairs", len(quotes)).Msg("rate source fetch succeeded")
			results[i] = quotes
			return nil
		})
	}
	_ = group.Wait()

	now := a.now().UTC()
	pairs := make(map[string]models.RatePair)
	var lastSuccessful string
	successes := 0
	for i, source := range targeted {
		quotes := results[i]
		if quotes == nil {
			continue
		}
		successes++
		lastSuccessful = source.Name()
		for key, rate := range quotes {
			from, to, ok := models.SplitPairKey(key)
			if !ok || rate.LessThanOrEqual(decimal.Zero) {
				continue
			}
			pairs[key] = models.RatePair{
				From:      from,
				To:        to,
				Rate:      rate,
				UpdatedAt: now,
				Source:    source.Name(),
			}
		}
	}
	if successes == 0 {
		return models.RateSnapshot{}, errs.AllSourcesUnavailable()
	}

	label := lastSuccessful
	if successes > 1 {
		label = "combined"
	}
	return models.RateSnapshot{Pairs: pairs, LastRefresh: now, Source: label}, nil
}

// SourceNames lists the configured sources in invocation order.
func (a *Aggregator) SourceNames() []string {
	names := make([]string, 0, len(a.sources))
	for _, source := range a.sources {
		names = append(names, source.Name())
	}
	return names
}
