package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/qpixel/internal/events"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// HeartbeatInterval is how often an idle stream sends a heartbeat frame
var HeartbeatInterval = 30 * time.Second

// StreamMessage is one frame sent on the grading stream
type StreamMessage struct {
	Type      string           `json:"type"`
	Module    string           `json:"module,omitempty"`
	Timestamp string           `json:"timestamp"`
	Data      events.EventData `json:"data,omitempty"`
}

// HandleStream handles GET /api/grading/stream (websocket).
// ?types=ITEM_GRADED,GRADING_COMPLETED restricts the forwarded events.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	eventTypes := events.AllTypes()
	if filter := r.URL.Query().Get("types"); filter != "" {
		eventTypes = eventTypes[:0:0]
		for _, t := range strings.Split(filter, ",") {
			eventTypes = append(eventTypes, events.EventType(strings.TrimSpace(t)))
		}
	}

	// The server write timeout would otherwise close the stream
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to accept websocket")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Buffer to prevent blocking the publisher
	eventChan := make(chan *events.Event, 100)
	handler := func(event *events.Event) {
		select {
		case eventChan <- event:
		default:
			h.log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Event channel full, dropping event")
		}
	}
	for _, eventType := range eventTypes {
		unsubscribe := h.bus.Subscribe(eventType, handler)
		defer unsubscribe()
	}

	// The client never sends; CloseRead cancels ctx once it goes away
	ctx := conn.CloseRead(r.Context())

	h.log.Info().Int("event_types", len(eventTypes)).Msg("Client connected to grading stream")

	if err := h.send(ctx, conn, StreamMessage{Type: "connected"}); err != nil {
		return
	}

	heartbeat := time.NewTicker(HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("Client disconnected from grading stream")
			return

		case event := <-eventChan:
			msg := StreamMessage{
				Type:      string(event.Type),
				Module:    event.Module,
				Timestamp: event.Timestamp.Format(time.RFC3339),
				Data:      event.Data,
			}
			if err := h.send(ctx, conn, msg); err != nil {
				return
			}

		case <-heartbeat.C:
			if err := h.send(ctx, conn, StreamMessage{Type: "heartbeat"}); err != nil {
				return
			}
		}
	}
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg StreamMessage) error {
	if msg.Timestamp == "" {
		msg.Timestamp = time.Now().Format(time.RFC3339)
	}

	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := wsjson.Write(writeCtx, conn, msg); err != nil {
		if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
			h.log.Warn().Err(err).Str("type", msg.Type).Msg("Failed to write stream message")
		}
		return err
	}
	return nil
}
