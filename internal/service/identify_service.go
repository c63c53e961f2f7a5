package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-media-identifier/internal/cache"
	apperrors "go-media-identifier/internal/errors"
	"go-media-identifier/internal/extract"
	"go-media-identifier/internal/format"
	"go-media-identifier/internal/observer"
	"go-media-identifier/internal/preprocess"
	"go-media-identifier/internal/reconcile"
	"go-media-identifier/internal/storage"
	"go-media-identifier/pkg/models"
	"go-media-identifier/pkg/validation"
)

// IdentifyService defines the identification pipeline entry points. Free
// text bypasses preprocessing and extraction and feeds reconciliation
// directly.
type IdentifyService interface {
	IdentifyImage(ctx context.Context, raw []byte) (*models.IdentifyResponse, error)
	IdentifyImageURL(ctx context.Context, imageURL string) (*models.IdentifyResponse, error)
	IdentifyText(ctx context.Context, query string) (*models.IdentifyResponse, error)
}

// identifyService wires the sequential pipeline stages together. Each
// request is a self-contained unit of work; the request cache is the only
// state shared across units.
type identifyService struct {
	fetcher      storage.ImageFetcher
	urlValidator *validation.URLValidator
	extractor    *extract.Extractor
	reconciler   *reconcile.Reconciler
	formatter    *format.Formatter
	requestCache *cache.Cache
	events       observer.Subject
	prepOpts     preprocess.Options
}

// NewIdentifyService creates the pipeline service. requestCache may be nil
// to disable memoization.
func NewIdentifyService(
	fetcher storage.ImageFetcher,
	urlValidator *validation.URLValidator,
	extractor *extract.Extractor,
	reconciler *reconcile.Reconciler,
	formatter *format.Formatter,
	requestCache *cache.Cache,
	events observer.Subject,
	prepOpts preprocess.Options,
) IdentifyService {
	return &identifyService{
		fetcher:      fetcher,
		urlValidator: urlValidator,
		extractor:    extractor,
		reconciler:   reconciler,
		formatter:    formatter,
		requestCache: requestCache,
		events:       events,
		prepOpts:     prepOpts,
	}
}

// IdentifyImage runs the full pipeline on raw image bytes.
func (s *identifyService) IdentifyImage(ctx context.Context, raw []byte) (*models.IdentifyResponse, error) {
	start := time.Now()
	requestID := uuid.NewString()
	s.notify(ctx, observer.PipelineEvent{
		EventType: observer.IdentifyStarted,
		Timestamp: start,
		RequestID: requestID,
		Success:   true,
		Metadata:  map[string]interface{}{"input": "image", "bytes": len(raw)},
	})

	var candidates []string
	fingerprint := cache.FingerprintBytes(raw)
	record, err := s.requestCache.GetOrCompute(ctx, fingerprint, func(ctx context.Context) (*models.MediaRecord, error) {
		titles, err := s.runImagePipeline(ctx, requestID, raw)
		if err != nil {
			return nil, err
		}
		candidates = titles
		return s.reconcileAndNotify(ctx, requestID, titles)
	})

	return s.finish(ctx, requestID, start, record, candidates, err)
}

// IdentifyImageURL fetches the image first, then runs the full pipeline.
func (s *identifyService) IdentifyImageURL(ctx context.Context, imageURL string) (*models.IdentifyResponse, error) {
	if err := s.urlValidator.ValidateImageURL(imageURL); err != nil {
		return nil, err
	}
	raw, err := s.fetcher.FetchImage(ctx, imageURL)
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to fetch image", err)
	}
	return s.IdentifyImage(ctx, raw)
}

// IdentifyText reconciles a user-typed query directly.
func (s *identifyService) IdentifyText(ctx context.Context, query string) (*models.IdentifyResponse, error) {
	start := time.Now()
	requestID := uuid.NewString()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewValidationError("query must not be empty", nil)
	}
	s.notify(ctx, observer.PipelineEvent{
		EventType: observer.IdentifyStarted,
		Timestamp: start,
		RequestID: requestID,
		Success:   true,
		Metadata:  map[string]interface{}{"input": "text"},
	})

	titles := []string{query}
	fingerprint := cache.FingerprintText(query)
	record, err := s.requestCache.GetOrCompute(ctx, fingerprint, func(ctx context.Context) (*models.MediaRecord, error) {
		return s.reconcileAndNotify(ctx, requestID, titles)
	})

	return s.finish(ctx, requestID, start, record, titles, err)
}

// runImagePipeline covers the stages before reconciliation: preprocessing
// and candidate extraction, with events emitted per stage.
func (s *identifyService) runImagePipeline(ctx context.Context, requestID string, raw []byte) ([]string, error) {
	prepared, err := preprocess.Prepare(raw, s.prepOpts)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, observer.PipelineEvent{
		EventType: observer.FramePrepared,
		Timestamp: time.Now(),
		RequestID: requestID,
		Success:   true,
		Metadata: map[string]interface{}{
			"width":  prepared.Width,
			"height": prepared.Height,
			"format": prepared.Format,
		},
	})

	titles, err := s.extractor.Extract(ctx, prepared)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, observer.PipelineEvent{
		EventType: observer.CandidatesExtracted,
		Timestamp: time.Now(),
		RequestID: requestID,
		Success:   true,
		Metadata:  map[string]interface{}{"candidates": len(titles)},
	})
	return titles, nil
}

// reconcileAndNotify runs provider reconciliation and announces the match.
// Cache hits skip it, so the event fires only when a provider was consulted.
func (s *identifyService) reconcileAndNotify(ctx context.Context, requestID string, titles []string) (*models.MediaRecord, error) {
	record, err := s.reconciler.Reconcile(ctx, titles)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, observer.PipelineEvent{
		EventType: observer.ProviderMatched,
		Timestamp: time.Now(),
		RequestID: requestID,
		Success:   true,
		Metadata: map[string]interface{}{
			"source_kind": record.SourceKind,
			"source_id":   record.SourceID,
		},
	})
	return record, nil
}

// finish converts the pipeline outcome into the transport envelope.
// NotFound and NoPlausibleTitle are expected terminal outcomes and render
// user-facing guidance; everything else propagates as an error.
func (s *identifyService) finish(ctx context.Context, requestID string, start time.Time, record *models.MediaRecord, candidates []string, err error) (*models.IdentifyResponse, error) {
	elapsed := time.Since(start)
	response := &models.IdentifyResponse{
		RequestID:         requestID,
		Candidates:        candidates,
		ProcessingTimeSec: elapsed.Seconds(),
	}

	switch {
	case err == nil:
		response.Record = record
		response.Message = s.formatter.Render(record)
		s.notify(ctx, observer.PipelineEvent{
			EventType:      observer.IdentifyCompleted,
			Timestamp:      time.Now(),
			RequestID:      requestID,
			ProcessingTime: elapsed,
			Success:        true,
			Metadata:       map[string]interface{}{"source": record.SourceKind, "title": record.Title},
		})
		return response, nil

	case apperrors.IsType(err, apperrors.ErrorTypeNotFound):
		response.Message = format.NotFoundMessage
		s.notifyFailed(ctx, requestID, elapsed, err)
		return response, nil

	case apperrors.IsType(err, apperrors.ErrorTypeNoPlausibleTitle):
		response.Message = format.NoTitleMessage
		s.notifyFailed(ctx, requestID, elapsed, err)
		return response, nil

	default:
		s.notifyFailed(ctx, requestID, elapsed, err)
		return nil, err
	}
}

func (s *identifyService) notify(ctx context.Context, event observer.PipelineEvent) {
	if s.events != nil {
		s.events.NotifyObservers(ctx, event)
	}
}

func (s *identifyService) notifyFailed(ctx context.Context, requestID string, elapsed time.Duration, err error) {
	s.notify(ctx, observer.PipelineEvent{
		EventType:      observer.IdentifyFailed,
		Timestamp:      time.Now(),
		RequestID:      requestID,
		ProcessingTime: elapsed,
		Success:        false,
		ErrorMessage:   err.Error(),
	})
}
