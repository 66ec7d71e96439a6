package domain

import (
	"fmt"
	"strings"
)

// CallID is the derived composite key correlating a realtime provider call
// back to a meeting row. It is never persisted.
type CallID struct {
	Type      string
	MeetingID string
}

// String renders the provider's colon-delimited form.
func (c CallID) String() string {
	return c.Type + ":" + c.MeetingID
}

// ParseCallCID parses a provider call identifier. Both the colon-delimited
// "type:id" form and a bare id are accepted; a bare id gets the given
// default type. Every webhook handler must go through this one parser so
// malformed identifiers behave the same on every path.
func ParseCallCID(cid, defaultType string) (CallID, error) {
	cid = strings.TrimSpace(cid)
	if cid == "" {
		return CallID{}, fmt.Errorf("empty call identifier")
	}

	if idx := strings.Index(cid, ":"); idx >= 0 {
		callType, id := cid[:idx], cid[idx+1:]
		if callType == "" {
			callType = defaultType
		}
		if id == "" {
			return CallID{}, fmt.Errorf("call identifier %q has no id component", cid)
		}
		return CallID{Type: callType, MeetingID: id}, nil
	}

	return CallID{Type: defaultType, MeetingID: cid}, nil
}
