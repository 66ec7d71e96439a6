package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/novameet/meeting-agent-service/internal/domain"
	"github.com/novameet/meeting-agent-service/internal/services/agent"
)

// AgentHandler serves CRUD for agent definitions.
type AgentHandler struct {
	service *agent.Service
}

func NewAgentHandler(service *agent.Service) *AgentHandler {
	return &AgentHandler{service: service}
}

func (h *AgentHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := AuthUserFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req domain.CreateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.service.Create(r.Context(), user, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *AgentHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := AuthUserFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := mux.Vars(r)["id"]
	found, err := h.service.GetOne(r.Context(), user, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (h *AgentHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := AuthUserFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	params := domain.ListAgentsParams{
		Page:     queryInt(r, "page"),
		PageSize: queryInt(r, "pageSize"),
		Search:   r.URL.Query().Get("search"),
	}

	page, err := h.service.GetMany(r.Context(), user, params)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *AgentHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := AuthUserFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := mux.Vars(r)["id"]
	var req domain.UpdateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.service.Update(r.Context(), user, id, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *AgentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := AuthUserFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.service.Remove(r.Context(), user, id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
