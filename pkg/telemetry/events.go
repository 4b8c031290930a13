package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a telemetry event in the Loadout pipeline.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// Profile is the associated profile name, if applicable.
	Profile string `json:"profile,omitempty"`

	// ModuleID is the associated module id, if applicable.
	ModuleID string `json:"module_id,omitempty"`

	// Scope is the associated settings scope, if applicable.
	Scope string `json:"scope,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants for common event types.
const (
	EventTypePlanAssembled    = "plan.assembled"
	EventTypePlanDegraded     = "plan.degraded"
	EventTypeProfileActivated = "profile.activated"
	EventTypeProfileFailed    = "profile.load_failed"
	EventTypeModuleResolved   = "module.resolved"
	EventTypeModuleNotFound   = "module.not_found"
	EventTypeSettingsChanged  = "settings.changed"
	EventTypeWatchTriggered   = "watch.triggered"
	EventTypeError            = "error"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher manages event publishing and subscriptions.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []subscriberEntry
	filters     []EventFilter
	wg          sync.WaitGroup
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return &EventPublisher{config: cfg}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	ep := &EventPublisher{
		config:      cfg,
		buffer:      make(chan Event, cfg.BufferSize),
		subscribers: make([]subscriberEntry, 0),
		filters:     make([]EventFilter, 0),
		ctx:         ctx,
		cancel:      cancel,
	}

	// Start the event processing goroutine
	if cfg.EnableAsync {
		ep.wg.Add(1)
		go ep.processEvents()
	}

	return ep, nil
}

// Publish publishes an event to all subscribers.
func (ep *EventPublisher) Publish(event Event) error {
	if !ep.config.Enabled {
		return nil
	}

	// Set ID and timestamp if not already set
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Apply global filters
	ep.mu.RLock()
	for _, filter := range ep.filters {
		if !filter(event) {
			ep.mu.RUnlock()
			return nil // Event filtered out
		}
	}
	ep.mu.RUnlock()

	// Send to buffer if async, otherwise process immediately
	if ep.config.EnableAsync {
		select {
		case ep.buffer <- event:
			return nil
		case <-ep.ctx.Done():
			return fmt.Errorf("event publisher stopped")
		default:
			// Buffer full, drop event or log warning
			return fmt.Errorf("event buffer full, event dropped")
		}
	}

	// Synchronous publishing
	ep.deliverEvent(event)
	return nil
}

// PublishPlanAssembled publishes a plan assembled event.
func (ep *EventPublisher) PublishPlanAssembled(profile string, moduleCount int, duration time.Duration) error {
	return ep.Publish(Event{
		Type:    EventTypePlanAssembled,
		Source:  "assembler",
		Profile: profile,
		Message: fmt.Sprintf("Plan assembled from profile %s (%d modules)", profile, moduleCount),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"module_count": moduleCount,
			"duration":     duration.Seconds(),
		},
	})
}

// PublishPlanDegraded publishes a plan degraded event.
func (ep *EventPublisher) PublishPlanDegraded(profile, reason string) error {
	return ep.Publish(Event{
		Type:    EventTypePlanDegraded,
		Source:  "assembler",
		Profile: profile,
		Message: fmt.Sprintf("Plan degraded to skeleton, profile %s failed: %s", profile, reason),
		Level:   EventLevelWarning,
		Data: map[string]interface{}{
			"reason": reason,
		},
	})
}

// PublishProfileActivated publishes a profile activated event.
func (ep *EventPublisher) PublishProfileActivated(profile, scope string) error {
	return ep.Publish(Event{
		Type:    EventTypeProfileActivated,
		Source:  "scope-store",
		Profile: profile,
		Scope:   scope,
		Message: fmt.Sprintf("Profile %s activated at %s scope", profile, scope),
		Level:   EventLevelInfo,
	})
}

// PublishProfileFailed publishes a profile load failure event.
func (ep *EventPublisher) PublishProfileFailed(profile, reason string) error {
	return ep.Publish(Event{
		Type:    EventTypeProfileFailed,
		Source:  "profile-loader",
		Profile: profile,
		Message: fmt.Sprintf("Profile %s failed to load: %s", profile, reason),
		Level:   EventLevelError,
		Data: map[string]interface{}{
			"reason": reason,
		},
	})
}

// PublishModuleResolved publishes a module resolved event.
func (ep *EventPublisher) PublishModuleResolved(moduleID, layer, source string) error {
	return ep.Publish(Event{
		Type:     EventTypeModuleResolved,
		Source:   "resolver",
		ModuleID: moduleID,
		Message:  fmt.Sprintf("Module %s resolved at layer %s", moduleID, layer),
		Level:    EventLevelInfo,
		Data: map[string]interface{}{
			"layer":  layer,
			"source": source,
		},
	})
}

// PublishModuleNotFound publishes a module not found event.
func (ep *EventPublisher) PublishModuleNotFound(moduleID string, layersChecked int) error {
	return ep.Publish(Event{
		Type:     EventTypeModuleNotFound,
		Source:   "resolver",
		ModuleID: moduleID,
		Message:  fmt.Sprintf("Module %s not found after checking %d layers", moduleID, layersChecked),
		Level:    EventLevelError,
		Data: map[string]interface{}{
			"layers_checked": layersChecked,
		},
	})
}

// PublishSettingsChanged publishes a settings changed event.
func (ep *EventPublisher) PublishSettingsChanged(scope, key string) error {
	return ep.Publish(Event{
		Type:    EventTypeSettingsChanged,
		Source:  "scope-store",
		Scope:   scope,
		Message: fmt.Sprintf("Settings key %s changed at %s scope", key, scope),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"key": key,
		},
	})
}

// PublishWatchTriggered publishes a watch triggered event.
func (ep *EventPublisher) PublishWatchTriggered(path, op string) error {
	return ep.Publish(Event{
		Type:    EventTypeWatchTriggered,
		Source:  "watcher",
		Message: fmt.Sprintf("Watched file %s changed (%s), reassembling", path, op),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"path": path,
			"op":   op,
		},
	})
}

// Subscribe adds a new event subscriber.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// AddFilter adds a global event filter.
func (ep *EventPublisher) AddFilter(filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.filters = append(ep.filters, filter)
}

// processEvents processes events from the buffer asynchronously.
func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()

	batch := make([]Event, 0, ep.config.MaxBatchSize)

	for {
		select {
		case event := <-ep.buffer:
			batch = append(batch, event)

			// Flush batch if it reaches max size
			if len(batch) >= ep.config.MaxBatchSize {
				ep.flushBatch(batch)
				batch = make([]Event, 0, ep.config.MaxBatchSize)
			}

		case <-ep.ctx.Done():
			// Flush remaining events before shutting down
			if len(batch) > 0 {
				ep.flushBatch(batch)
			}
			return
		}
	}
}

// flushBatch delivers a batch of events to subscribers.
func (ep *EventPublisher) flushBatch(events []Event) {
	for _, event := range events {
		ep.deliverEvent(event)
	}
}

// deliverEvent delivers an event to all subscribers.
func (ep *EventPublisher) deliverEvent(event Event) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, entry := range ep.subscribers {
		// Apply subscriber-specific filter
		if entry.filter != nil && !entry.filter(event) {
			continue
		}

		// Call subscriber in a goroutine to avoid blocking
		go entry.subscriber(event)
	}
}

// Shutdown gracefully shuts down the event publisher.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if !ep.config.Enabled {
		return nil
	}

	// Signal shutdown
	ep.cancel()

	// Wait for processing to complete with timeout
	done := make(chan struct{})
	go func() {
		ep.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher shutdown timeout")
	}
}

// Common event filters.

// FilterByLevel creates a filter that only allows events of a specific level or higher.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}

	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType creates a filter that only allows events of specific types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// FilterByProfile creates a filter that only allows events for a specific profile.
func FilterByProfile(profile string) EventFilter {
	return func(event Event) bool {
		return event.Profile == profile
	}
}

// FilterByModule creates a filter that only allows events for a specific module.
func FilterByModule(moduleID string) EventFilter {
	return func(event Event) bool {
		return event.ModuleID == moduleID
	}
}
