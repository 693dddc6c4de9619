package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
)

// ActivityService records ticket events in the structured log and the
// metrics counters.
type ActivityService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewActivityService creates the service.
func NewActivityService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *ActivityService {
	return &ActivityService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to events.
func (a *ActivityService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventTicketCreated, a.record)
	a.dispatcher.Subscribe(events.EventTicketStatusChanged, a.record)
	a.dispatcher.Subscribe(events.EventTicketAssigned, a.record)
	a.dispatcher.Subscribe(events.EventTicketHoldReasonSet, a.record)
}

func (a *ActivityService) record(_ context.Context, event events.Event) error {
	a.metrics.RecordEvent(string(event.Type))
	a.logger.Info("ticket activity",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Int64("ticket_id", event.TicketID),
		zap.String("actor_kind", string(event.Actor.Kind)),
		zap.Int64("actor_id", event.Actor.ID),
		zap.Any("payload", event.Payload))
	return nil
}
