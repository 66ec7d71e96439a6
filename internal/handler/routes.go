package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/novameet/meeting-agent-service/internal/config"
	"github.com/novameet/meeting-agent-service/internal/services/agent"
	"github.com/novameet/meeting-agent-service/internal/services/call"
	"github.com/novameet/meeting-agent-service/internal/services/meeting"
)

// HandlerManager wires the HTTP surface over the service layer.
type HandlerManager struct {
	cfg            *config.Config
	agentHandler   *AgentHandler
	meetingHandler *MeetingHandler
	webhookHandler *WebhookHandler
}

func NewHandlerManager(cfg *config.Config, agents *agent.Service, meetings *meeting.Service, calls *call.Service) *HandlerManager {
	return &HandlerManager{
		cfg:            cfg,
		agentHandler:   NewAgentHandler(agents),
		meetingHandler: NewMeetingHandler(meetings),
		webhookHandler: NewWebhookHandler(calls, calls.Provider()),
	}
}

// SetupAllRoutes registers every route on the router. The webhook endpoint
// sits outside the session-authenticated subtree: the provider authenticates
// with a signature, not a session.
func (m *HandlerManager) SetupAllRoutes(router *mux.Router) {
	router.Use(LoggingMiddleware)
	router.Use(CORSMiddleware)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	router.HandleFunc("/webhook", m.webhookHandler.Handle).Methods(http.MethodPost)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(SessionMiddleware(m.cfg.SessionSecret))
	api.Use(RateLimitMiddleware(m.cfg.APIRateLimit, m.cfg.APIRateBurst))

	api.HandleFunc("/agents", m.agentHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/agents", m.agentHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/agents/{id}", m.agentHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/agents/{id}", m.agentHandler.Update).Methods(http.MethodPut)
	api.HandleFunc("/agents/{id}", m.agentHandler.Delete).Methods(http.MethodDelete)

	api.HandleFunc("/meetings", m.meetingHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/meetings", m.meetingHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/meetings/token", m.meetingHandler.GenerateToken).Methods(http.MethodPost)
	api.HandleFunc("/meetings/{id}", m.meetingHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/meetings/{id}", m.meetingHandler.Update).Methods(http.MethodPut)
	api.HandleFunc("/meetings/{id}", m.meetingHandler.Delete).Methods(http.MethodDelete)
}
