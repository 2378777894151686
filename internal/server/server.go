// Package server implements the reference persistence service for the
// graph engine: the REST surface the editor consumes, a per-workflow
// websocket event feed, and pluggable durable storage.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/loomengine/loom/internal/logging"
	"github.com/loomengine/loom/pkg/domain"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// Server serves the persistence API over one WorkflowStore.
type Server struct {
	store   WorkflowStore
	hub     *Hub
	modules []domain.Module
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a server over the given store, serving the given module
// catalog.
func New(store WorkflowStore, modules []domain.Module, opts ...Option) *Server {
	s := &Server{
		store:   store,
		modules: modules,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = NewHub(s.logger)
	return s
}

// Hub exposes the event hub, mainly for tests.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler builds the chi router for the full API surface.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(countRequests)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/modules", s.handleModules)

	r.Get("/workflows", s.handleListWorkflows)
	r.Post("/workflows", s.handleCreateWorkflow)
	r.Route("/workflows/{workflowID}", func(r chi.Router) {
		r.Get("/nodes", s.handleListNodes)
		r.Post("/nodes", s.handleCreateNode)
		r.Get("/connections", s.handleListConnections)
		r.Post("/connections", s.handleCreateConnection)
		r.Get("/graph", s.handleGraph)
		r.Get("/events", s.handleEvents)
	})

	r.Put("/nodes/{nodeID}", s.handleUpdateNode)
	r.Delete("/nodes/{nodeID}", s.handleDeleteNode)
	r.Delete("/connections/{connectionID}", s.handleDeleteConnection)

	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrWorkflowNotFound),
		errors.Is(err, domain.ErrNodeNotFound),
		errors.Is(err, domain.ErrConnectionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrSelfLoop):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrDuplicateConnection),
		errors.Is(err, domain.ErrCellOccupied):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	s.writeJSON(w, status, errorBody{Error: err.Error(), Code: domain.CodeForError(err)})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleModules(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.modules)
}

func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.ListWorkflows(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ids)
}

func (s *Server) handleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.store.EnsureWorkflow(r.Context(), body.ID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"id": body.ID})
}

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.store.ListNodes(r.Context(), chi.URLParam(r, "workflowID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nodes)
}

func (s *Server) handleCreateNode(w http.ResponseWriter, r *http.Request) {
	workflowID := chi.URLParam(r, "workflowID")
	var draft domain.NodeDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	node, err := s.store.CreateNode(r.Context(), workflowID, draft)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.hub.Publish(workflowID, domain.ChangeNodeCreated, node.ID)
	s.writeJSON(w, http.StatusCreated, node)
}

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := s.store.ListConnections(r.Context(), chi.URLParam(r, "workflowID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, conns)
}

func (s *Server) handleCreateConnection(w http.ResponseWriter, r *http.Request) {
	workflowID := chi.URLParam(r, "workflowID")
	var draft domain.ConnectionDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	conn, err := s.store.CreateConnection(r.Context(), workflowID, draft)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.hub.Publish(workflowID, domain.ChangeConnectionCreated, conn.SourceNodeID)
	s.writeJSON(w, http.StatusCreated, conn)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	desc, err := s.store.Graph(r.Context(), chi.URLParam(r, "workflowID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, desc)
}

func (s *Server) handleUpdateNode(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")
	var patch domain.NodePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	node, workflowID, err := s.store.UpdateNode(r.Context(), nodeID, patch)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.hub.Publish(workflowID, domain.ChangeNodeUpdated, node.ID)
	s.writeJSON(w, http.StatusOK, node)
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")
	cascaded, workflowID, err := s.store.DeleteNode(r.Context(), nodeID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.hub.Publish(workflowID, domain.ChangeNodeDeleted, nodeID)
	for _, c := range cascaded {
		s.hub.Publish(workflowID, domain.ChangeConnectionDeleted, c.SourceNodeID)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteConnection(w http.ResponseWriter, r *http.Request) {
	conn, workflowID, err := s.store.DeleteConnection(r.Context(), chi.URLParam(r, "connectionID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.hub.Publish(workflowID, domain.ChangeConnectionDeleted, conn.SourceNodeID)
	w.WriteHeader(http.StatusNoContent)
}

// handleEvents upgrades to a websocket and streams the workflow's change
// events until the client goes away. Pings keep NATed connections alive;
// a missed pong tears the subscription down.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	workflowID := chi.URLParam(r, "workflowID")
	if _, err := s.store.Graph(r.Context(), workflowID); err != nil {
		s.writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events, release := s.hub.Subscribe(workflowID)
	defer release()

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// Reader goroutine: we never expect inbound frames, but reading is
	// required to process pongs and to notice the peer closing.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()

	s.logger.Info("feed subscriber connected", "workflow_id", workflowID)
	for {
		select {
		case <-readerDone:
			return
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
