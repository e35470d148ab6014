// Package web is the request/response surface: message CRUD over HTTP plus
// the stats and inspect endpoints.
package web

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/observability"
)

//go:embed inspect.html
var templatesFS embed.FS

type createRequest struct {
	ClientID string `json:"clientID"`
	Data     string `json:"data"`
}

type deleteRequest struct {
	ClientID string `json:"clientID"`
}

type Server struct {
	log     *slog.Logger
	service contract.IRelayService
	monitor *observability.Monitor
	tmpl    *template.Template
}

func NewServer(log *slog.Logger, service contract.IRelayService,
	monitor *observability.Monitor) *Server {
	return &Server{
		log:     log,
		service: service,
		monitor: monitor,
		tmpl:    template.Must(template.ParseFS(templatesFS, "inspect.html")),
	}
}

// Handler builds the routed surface wrapped with access logging and a
// permissive CORS policy.
func (s *Server) Handler() http.Handler {
	router := httprouter.New()
	router.POST("/resources", s.createMessage)
	router.GET("/resources", s.listMessages)
	router.DELETE("/resources/:id", s.deleteMessage)
	router.HandlerFunc(http.MethodGet, "/stats", s.stats)
	router.HandlerFunc(http.MethodGet, "/inspect", s.inspect)

	return cors.AllowAll().Handler(s.accessLog(router))
}

func (s *Server) createMessage(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body createRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.log.Error("Error creating message", "error", err)
		writeJSON(w, http.StatusInternalServerError,
			map[string]string{"error": "Failed to create message"})
		return
	}

	message, err := s.service.PostMessage(r.Context(), domain.PostMessageCommand{
		ClientID: body.ClientID,
		Content:  body.Data,
	})
	if err != nil {
		s.log.Error("Error creating message", "error", err)
		writeJSON(w, http.StatusInternalServerError,
			map[string]string{"error": "Failed to create message"})
		return
	}

	writeJSON(w, http.StatusCreated, message)
}

func (s *Server) listMessages(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	messages, err := s.service.ListMessages()
	if err != nil {
		s.log.Error("Error fetching messages", "error", err)
		writeJSON(w, http.StatusInternalServerError,
			map[string]string{"error": "Failed to fetch messages"})
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (s *Server) deleteMessage(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id := params.ByName("id")

	var body deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.log.Error("Error deleting message", "error", err)
		writeJSON(w, http.StatusInternalServerError,
			map[string]string{"error": "Failed to delete message"})
		return
	}

	err := s.service.DeleteMessage(r.Context(), domain.DeleteMessageCommand{
		MessageID:   id,
		RequesterID: body.ClientID,
	})

	switch errors.MapToStatus(err) {
	case http.StatusOK:
		writeJSON(w, http.StatusOK,
			map[string]string{"message": fmt.Sprintf("Message with id %s deleted.", id)})
	case http.StatusForbidden:
		writeJSON(w, http.StatusForbidden,
			map[string]string{"error": "Unauthorized delete attempt"})
	case http.StatusNotFound:
		writeJSON(w, http.StatusNotFound,
			map[string]string{"error": fmt.Sprintf("Message with id %s not found.", id)})
	default:
		s.log.Error("Error deleting message", "error", err)
		writeJSON(w, http.StatusInternalServerError,
			map[string]string{"error": "Failed to delete message"})
	}
}

func (s *Server) stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.monitor.Stats())
}

type inspectPage struct {
	Messages []domain.Message
	Stats    map[string]any
}

func (s *Server) inspect(w http.ResponseWriter, _ *http.Request) {
	messages, err := s.service.ListMessages()
	if err != nil {
		http.Error(w, "Failed to fetch messages", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = s.tmpl.Execute(w, inspectPage{
		Messages: messages,
		Stats:    s.monitor.Stats(),
	})
}

// accessLog logs one line per request, like a combined access log.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.log.Info("Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"remote", r.RemoteAddr)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
