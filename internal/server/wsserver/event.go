package wsserver

import (
	"context"
	"encoding/json"

	"github.com/yndnr/aci-go/internal/protocol"
)

// SendEvent forwards an event to every session bound to destination and
// returns the number of sessions reached. Delivery is best-effort: a
// failed write is counted and logged, never retried or reported to the
// origin.
func (s *Server) SendEvent(ctx context.Context, destination, eventID string, payload json.RawMessage, origin string) int {
	msg := &protocol.Response{
		Kind:    protocol.KindEvent,
		EventID: eventID,
		Origin:  origin,
		Payload: payload,
	}

	var targets []*Session
	s.sessions.Range(func(_ string, sess *Session) bool {
		if rec := sess.Record(); rec != nil && rec.Principal == destination {
			targets = append(targets, sess)
		}
		return true
	})

	delivered := 0
	for _, sess := range targets {
		if err := sess.write(ctx, msg); err != nil {
			s.metrics.RecordEvent(false)
			s.logger.Debug("event dropped", "session_id", sess.ID(), "event_id", eventID, "error", err)
			continue
		}
		s.metrics.RecordEvent(true)
		delivered++
	}
	s.logger.Debug("event sent", "destination", destination, "event_id", eventID, "delivered", delivered)
	return delivered
}
