package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/novameet/meeting-agent-service/internal/domain"
	"github.com/novameet/meeting-agent-service/internal/services/meeting"
)

// MeetingHandler serves meeting CRUD, listing and call token issuance.
type MeetingHandler struct {
	service *meeting.Service
}

func NewMeetingHandler(service *meeting.Service) *MeetingHandler {
	return &MeetingHandler{service: service}
}

func queryInt(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return v
}

func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := AuthUserFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req domain.CreateMeetingRequest
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

func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
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

func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := AuthUserFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	params := domain.ListMeetingsParams{
		Page:     queryInt(r, "page"),
		PageSize: queryInt(r, "pageSize"),
		Search:   r.URL.Query().Get("search"),
		AgentID:  r.URL.Query().Get("agentId"),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.MeetingStatus(raw)
		if !status.Valid() {
			writeErrorMessage(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		params.Status = &status
	}

	page, err := h.service.GetMany(r.Context(), user, params)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *MeetingHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := AuthUserFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := mux.Vars(r)["id"]
	var req domain.UpdateMeetingRequest
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

func (h *MeetingHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

// GenerateToken issues a short-lived call token for the authenticated user.
// The caller is upserted with the provider first so the token resolves to a
// known identity.
func (h *MeetingHandler) GenerateToken(w http.ResponseWriter, r *http.Request) {
	user, ok := AuthUserFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	token, err := h.service.GenerateToken(r.Context(), user)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
