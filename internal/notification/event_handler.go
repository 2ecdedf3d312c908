package notification

import (
	"context"
	"log/slog"

	"github.com/smuchara/pollstack/internal/core/events"
)

// EventHandler forwards bus events to the webhook dispatcher.
type EventHandler struct {
	dispatcher *Dispatcher
	logger     *slog.Logger
}

func NewEventHandler(dispatcher *Dispatcher, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func (h *EventHandler) HandleEvent(ctx context.Context, event events.Event) error {
	data, _ := event.Payload().(map[string]interface{})

	return h.dispatcher.Enqueue(WebhookJob{
		EventID:    event.EventID(),
		EventType:  event.EventType(),
		OccurredAt: event.OccurredAt(),
		Data:       data,
	})
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	types := []string{
		events.EventTypeVoteCast,
		events.EventTypePresenceVerified,
		events.EventTypePollStatusChange,
	}
	for _, t := range types {
		eventBus.Subscribe(t, h.HandleEvent)
	}

	h.logger.Info("notification event handlers registered", "handlers", types)
}
