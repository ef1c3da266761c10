package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/discord-mqtt-bot/internal/audit"
)

// handleListDeliveries returns delivery audit records, newest first.
//
// Query parameters:
//   - target: filter by registered name
//   - outcome: filter by outcome (delivered, unknown_target, failed, ...)
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListDeliveries(w http.ResponseWriter, r *http.Request) {
	filter, ok := auditFilter(w, r)
	if !ok {
		return
	}
	filter.Action = audit.ActionDeliver
	s.listAudit(w, r, filter)
}

// handleListAudit returns all audit records. Accepts the same parameters as
// deliveries plus action (register, unregister, deliver).
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	filter, ok := auditFilter(w, r)
	if !ok {
		return
	}
	filter.Action = r.URL.Query().Get("action")
	s.listAudit(w, r, filter)
}

func (s *Server) listAudit(w http.ResponseWriter, r *http.Request, filter audit.Filter) {
	if s.audit == nil {
		writeUnavailable(w, "audit trail is not enabled")
		return
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list audit records", "error", err)
		writeInternalError(w, "failed to list audit records")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// auditFilter parses the shared query parameters. It writes a 400 and
// returns false on a malformed number.
func auditFilter(w http.ResponseWriter, r *http.Request) (audit.Filter, bool) {
	q := r.URL.Query()
	filter := audit.Filter{
		Target:  q.Get("target"),
		Outcome: q.Get("outcome"),
	}

	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"limit", &filter.Limit},
		{"offset", &filter.Offset},
	} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, p.name+" must be a non-negative integer")
			return audit.Filter{}, false
		}
		*p.dst = n
	}

	return filter, true
}
