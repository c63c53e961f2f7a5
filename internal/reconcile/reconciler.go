package reconcile

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "go-media-identifier/internal/errors"
	"go-media-identifier/internal/logger"
	"go-media-identifier/internal/provider"
	"go-media-identifier/pkg/models"
)

// Reconciler drives title candidates through the provider fallback chain.
// Providers are listed in reliability order, not relevance order, so no
// ranking across hits is needed: the first success wins.
type Reconciler struct {
	providers  []provider.Client
	strategies []RewriteStrategy
	timeout    time.Duration
}

// New creates a reconciler over providers, which are queried in the given
// priority order.
func New(providers []provider.Client, strategies []RewriteStrategy, timeout time.Duration) *Reconciler {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Reconciler{
		providers:  providers,
		strategies: strategies,
		timeout:    timeout,
	}
}

// Reconcile tries every (title, rewrite, provider) combination in order and
// returns the first normalized hit. Provider outages and rate limits are
// logged and skipped; a NotFound error is returned only when the whole
// nested iteration is exhausted. Calls are strictly sequential: a later
// provider is only asked after the earlier one is confirmed to have missed.
func (r *Reconciler) Reconcile(ctx context.Context, titles []string) (*models.MediaRecord, error) {
	for _, title := range titles {
		for _, query := range ExpandRewrites(title, r.strategies) {
			for _, client := range r.providers {
				if err := ctx.Err(); err != nil {
					return nil, apperrors.NewEngineTimeoutError("reconciliation cancelled", err)
				}

				record, err := r.searchOne(ctx, client, query)
				if err != nil {
					if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
						logger.WithStage("reconcile").WithFields(logrus.Fields{
							"provider": client.Name(),
							"query":    query,
						}).Debug("provider miss")
					} else {
						logger.WithStage("reconcile").WithError(err).WithFields(logrus.Fields{
							"provider": client.Name(),
							"query":    query,
						}).Warn("provider skipped")
					}
					continue
				}

				logger.WithStage("reconcile").WithFields(logrus.Fields{
					"provider": client.Name(),
					"query":    query,
					"title":    record.Title,
				}).Info("provider match reconciled")
				return record, nil
			}
		}
	}
	return nil, apperrors.NewNotFoundError("no provider matched any candidate", nil)
}

func (r *Reconciler) searchOne(ctx context.Context, client provider.Client, query string) (*models.MediaRecord, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := client.Search(callCtx, query)
	if err != nil {
		return nil, err
	}
	return Normalize(raw, client.Name())
}
