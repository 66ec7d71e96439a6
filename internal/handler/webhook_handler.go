package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/novameet/meeting-agent-service/internal/adapters/realtime"
	"github.com/novameet/meeting-agent-service/internal/services/call"
	"github.com/novameet/meeting-agent-service/pkg/logger"
	"go.uber.org/zap"
)

// providerEvent is the envelope for the call provider's webhook payloads.
// Only the fields the dispatcher routes on are decoded; everything else is
// ignored.
type providerEvent struct {
	Type    string `json:"type"`
	CallCID string `json:"call_cid"`
	Call    *struct {
		CID string `json:"cid"`
	} `json:"call"`
	Participant *struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	} `json:"participant"`
	CallRecording *struct {
		URL string `json:"url"`
	} `json:"call_recording"`
}

// cid returns the call identifier, preferring the top-level field over the
// nested call object. Recording events only carry the nested form.
func (e *providerEvent) cid() string {
	if e.CallCID != "" {
		return e.CallCID
	}
	if e.Call != nil {
		return e.Call.CID
	}
	return ""
}

// WebhookHandler receives call lifecycle events from the external provider
// and routes them to the call service. Verification happens before any
// event-specific work; after that point every request is acknowledged with
// 200 so the provider does not retry events we chose to skip.
type WebhookHandler struct {
	calls    *call.Service
	provider realtime.Client
}

func NewWebhookHandler(calls *call.Service, provider realtime.Client) *WebhookHandler {
	return &WebhookHandler{calls: calls, provider: provider}
}

func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	if h.provider == nil {
		logger.Base().Error("webhook received but provider is not configured")
		writeErrorMessage(w, http.StatusInternalServerError, "provider not configured")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if len(body) == 0 {
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}

	var event providerEvent
	if err := json.Unmarshal(body, &event); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	signature := r.Header.Get("x-signature")
	if signature == "" {
		signature = r.Header.Get("x-stat-signature")
	}
	if !h.provider.VerifyWebhook(body, signature) {
		logger.Base().Warn("webhook signature verification failed",
			zap.String("event_type", event.Type),
			zap.String("api_key", r.Header.Get("x-api-key")))
		writeErrorMessage(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	h.dispatch(r, &event)

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// dispatch routes a verified event. Handler errors are logged, never
// surfaced: the provider's delivery succeeded even when our side effects
// did not, and its retries would not help.
func (h *WebhookHandler) dispatch(r *http.Request, event *providerEvent) {
	ctx := r.Context()
	cid := event.cid()

	var err error
	switch event.Type {
	case "call.session_started":
		err = h.calls.EnsureAgentConnected(ctx, cid)
	case "call.session_participant_joined":
		// Fallback for sessions whose start event was missed. Agent joins
		// must not re-trigger attachment.
		if event.Participant != nil && realtime.IsBotIdentity(event.Participant.User.ID) {
			logger.Base().Debug("ignoring agent participant join", zap.String("call_cid", cid))
			return
		}
		err = h.calls.EnsureAgentConnected(ctx, cid)
	case "call.session_participant_left":
		participantID := ""
		if event.Participant != nil {
			participantID = event.Participant.User.ID
		}
		err = h.calls.HandleParticipantLeft(ctx, cid, participantID)
	case "call.session_ended", "call.ended":
		err = h.calls.HandleCallEnded(ctx, cid)
	case "call.recording_ready":
		url := ""
		if event.CallRecording != nil {
			url = event.CallRecording.URL
		}
		err = h.calls.HandleRecordingReady(ctx, cid, url)
	default:
		logger.Base().Debug("unhandled webhook event", zap.String("event_type", event.Type))
		return
	}

	if err != nil {
		logger.Base().Error("webhook event handling failed",
			zap.String("event_type", event.Type),
			zap.String("call_cid", cid),
			zap.Error(err))
	}
}
