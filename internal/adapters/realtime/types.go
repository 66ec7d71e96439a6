package realtime

import (
	"fmt"
	"net/url"

	"github.com/novameet/meeting-agent-service/internal/config"
)

// UpsertUser is a provider-side user identity. Upserting the same id twice
// is safe; the provider treats it as an idempotent write.
type UpsertUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  string `json:"role,omitempty"`
	Image string `json:"image,omitempty"`
}

// CallData tags a call resource at creation time.
type CallData struct {
	CreatedByID string `json:"created_by_id"`
	Name        string `json:"name,omitempty"`
}

// AgentSession configures the AI voice bridge for a call: the bot identity
// joining the call, the behavior instructions, and the fixed session tuning.
type AgentSession struct {
	AgentUserID  string
	Instructions string
	Session      config.RealtimeSessionConfig
}

// AvatarURL returns a deterministic generated-avatar URL for a provider
// identity that has no uploaded image.
func AvatarURL(id, name string) string {
	return fmt.Sprintf("https://getstream.io/random_svg/?id=%s&name=%s",
		url.QueryEscape(id), url.QueryEscape(name))
}
