package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/projectnode/internal/events"
)

// registerEventRoutes registers the lifecycle event SSE endpoint.
func (s *Server) registerEventRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Event Stream",
		Description: "Project and process lifecycle events via Server-Sent Events",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"project_created": events.ProjectCreatedEvent{},
		"process_started": events.ProcessStartedEvent{},
		"process_stop":    events.ProcessStopRequestedEvent{},
		"process_exited":  events.ProcessExitedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 10)

		// One subscription per event type, all feeding the same channel
		unsubs := []func(){
			events.SubscribeToChannel[events.ProjectCreatedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ProcessStartedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ProcessStopRequestedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ProcessExitedEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubs {
				unsub()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
