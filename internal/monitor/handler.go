package monitor

import (
	"encoding/json"
	"log"
	"time"
)

// Handler bridges coordinator sync events onto the WebSocket server. It
// implements coordinator.EventSink; every method formats the event as
// JSON and hands it to the server's non-blocking broadcast.
type Handler struct {
	server *Server
	logger *log.Logger
}

// NewHandler creates an event handler connected to a monitor server.
func NewHandler(server *Server, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{server: server, logger: logger}
}

// OnSyncStarted broadcasts that a reconciliation began.
func (h *Handler) OnSyncStarted() {
	h.server.Broadcast(Event{
		Type:      EventSyncStarted,
		Timestamp: time.Now(),
	})
}

// OnSyncComplete broadcasts a successful reconciliation with its result.
func (h *Handler) OnSyncComplete(updatedCells int, elapsed time.Duration) {
	h.broadcast(EventSyncComplete, SyncCompleteData{
		UpdatedCells: updatedCells,
		DurationMS:   elapsed.Milliseconds(),
	})
}

// OnSyncSkipped broadcasts a skipped sync request.
func (h *Handler) OnSyncSkipped(reason string) {
	h.broadcast(EventSyncSkipped, SyncSkippedData{Reason: reason})
}

// OnSyncFailed broadcasts a failed reconciliation.
func (h *Handler) OnSyncFailed(err error) {
	h.broadcast(EventSyncFailed, SyncFailedData{Reason: err.Error()})
}

func (h *Handler) broadcast(typ EventType, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal %s event: %v", typ, err)
		return
	}

	h.server.Broadcast(Event{
		Type:      typ,
		Timestamp: time.Now(),
		Data:      payload,
	})
}
