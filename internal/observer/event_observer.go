package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"go-media-identifier/internal/logger"
)

// PipelineEvent represents one identification pipeline event
type PipelineEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	RequestID      string                 `json:"request_id"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of pipeline event
type EventType string

const (
	// IdentifyStarted when an identification request begins
	IdentifyStarted EventType = "identify_started"
	// FramePrepared when preprocessing finishes
	FramePrepared EventType = "frame_prepared"
	// CandidatesExtracted when candidate extraction finishes
	CandidatesExtracted EventType = "candidates_extracted"
	// ProviderMatched when a provider returned a record
	ProviderMatched EventType = "provider_matched"
	// IdentifyCompleted when the pipeline finishes successfully
	IdentifyCompleted EventType = "identify_completed"
	// IdentifyFailed when the pipeline ends without a record
	IdentifyFailed EventType = "identify_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event PipelineEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	NotifyObservers(ctx context.Context, event PipelineEvent)
}

// EventBus is the default Subject implementation.
type EventBus struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventBus creates an empty event bus.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers an observer.
func (b *EventBus) Subscribe(observer Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, observer)
}

// NotifyObservers delivers the event to every registered observer in order.
func (b *EventBus) NotifyObservers(ctx context.Context, event PipelineEvent) {
	b.mu.RLock()
	observers := make([]Observer, len(b.observers))
	copy(observers, b.observers)
	b.mu.RUnlock()

	for _, o := range observers {
		o.OnEvent(ctx, event)
	}
}

// LoggingObserver logs pipeline events
type LoggingObserver struct{}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver() Observer {
	return &LoggingObserver{}
}

// OnEvent handles pipeline events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event PipelineEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"request_id":      event.RequestID,
		"processing_time": event.ProcessingTime,
		"success":         event.Success,
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	if event.Success {
		logger.WithFields(fields).Info("pipeline event")
	} else {
		logger.WithFields(fields).Warn("pipeline event")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// StatsObserver keeps running counters per event type.
type StatsObserver struct {
	mu     sync.Mutex
	counts map[EventType]int64
}

// NewStatsObserver creates a new stats observer
func NewStatsObserver() *StatsObserver {
	return &StatsObserver{counts: make(map[EventType]int64)}
}

// OnEvent counts the event.
func (o *StatsObserver) OnEvent(ctx context.Context, event PipelineEvent) {
	o.mu.Lock()
	o.counts[event.EventType]++
	o.mu.Unlock()
}

// GetObserverName returns the observer name
func (o *StatsObserver) GetObserverName() string {
	return "stats_observer"
}

// Snapshot returns a copy of the counters.
func (o *StatsObserver) Snapshot() map[EventType]int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[EventType]int64, len(o.counts))
	for k, v := range o.counts {
		out[k] = v
	}
	return out
}
