package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/voyago/voyago/internal/adapter/ws"
	"github.com/voyago/voyago/internal/domain/query"
	"github.com/voyago/voyago/internal/service"
)

// Handlers bundles the dependencies of all HTTP endpoints.
type Handlers struct {
	Orchestrator *service.Orchestrator
	Hub          *ws.Hub
}

// NewHandlers creates the handler set.
func NewHandlers(orch *service.Orchestrator, hub *ws.Hub) *Handlers {
	return &Handlers{Orchestrator: orch, Hub: hub}
}

// ---------------------------------------------------------------------------
// Chat
// ---------------------------------------------------------------------------

// StreamChat submits a query and streams its events over SSE. The query and
// thread identifiers are exposed as response headers before the first frame
// so the client can cancel or poll while the stream is still open.
func (h *Handlers) StreamChat(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[query.SubmitRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Query, "query") {
		return
	}

	entry, err := h.Orchestrator.Submit(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "query not found")
		return
	}
	h.streamEvents(w, r, entry)
}

// ResumeChat continues an interrupted thread with a follow-up query and
// streams the new run over SSE.
func (h *Handlers) ResumeChat(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[query.ResumeRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Query, "query") {
		return
	}
	if !requireField(w, req.ThreadID, "thread_id") {
		return
	}

	entry, err := h.Orchestrator.Resume(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "previous query not found")
		return
	}
	h.streamEvents(w, r, entry)
}

// streamEvents writes the entry's event stream as SSE data frames. A client
// disconnect abandons the stream, which cancels the running query.
func (h *Handlers) streamEvents(w http.ResponseWriter, r *http.Request, entry *service.Entry) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		entry.Stream.Abandon()
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Query-ID", entry.Query.ID)
	w.Header().Set("X-Thread-ID", entry.Query.ThreadID)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case ev, open := <-entry.Stream.Events():
			if !open {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		case <-r.Context().Done():
			entry.Stream.Abandon()
			return
		}
	}
}

type cancelResponse struct {
	Status    string    `json:"status"`
	QueryID   string    `json:"query_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// CancelChat requests cancellation of a running query. A finished query
// still tracked by the registry reports already_terminal; an unknown id
// is not found.
func (h *Handlers) CancelChat(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[query.CancelRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.QueryID, "query_id") {
		return
	}
	if req.Reason == "" {
		req.Reason = query.DefaultCancelReason
	}

	status, err := h.Orchestrator.Cancel(req)
	if err != nil {
		writeDomainError(w, err, "query not found")
		return
	}
	writeJSON(w, http.StatusOK, cancelResponse{
		Status:    status,
		QueryID:   req.QueryID,
		Reason:    req.Reason,
		Timestamp: time.Now().UTC(),
	})
}

// ChatStatus reports the observable state of a query.
func (h *Handlers) ChatStatus(w http.ResponseWriter, r *http.Request) {
	queryID := urlParam(r, "query_id")
	if !requireField(w, queryID, "query_id") {
		return
	}

	info, err := h.Orchestrator.Status(queryID)
	if err != nil {
		writeDomainError(w, err, "query not found")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// ThreadHistory returns a thread's messages and accumulated state.
func (h *Handlers) ThreadHistory(w http.ResponseWriter, r *http.Request) {
	threadID := urlParam(r, "thread_id")
	if !requireField(w, threadID, "thread_id") {
		return
	}

	hist, err := h.Orchestrator.History(r.Context(), threadID)
	if err != nil {
		writeDomainError(w, err, "thread not found")
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

type healthResponse struct {
	Status        string `json:"status"`
	ActiveQueries int    `json:"active_queries"`
	WSClients     int    `json:"ws_clients"`
}

// Health reports liveness, in-flight queries, and monitoring clients.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		ActiveQueries: h.Orchestrator.ActiveCount(),
		WSClients:     h.Hub.ConnectionCount(),
	})
}
