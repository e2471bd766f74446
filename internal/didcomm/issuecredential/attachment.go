package issuecredential

import (
	"encoding/json"

	"aries-agent-core/internal/agenterr"
	"aries-agent-core/internal/didcomm/model"
)

// decodeAttachment extracts the first attachment's JSON payload into out,
// round-tripping through encoding/json so this works whether Data.JSON
// holds a typed Go value (in-process test transport) or the map produced by
// unmarshalling a real wire message.
func decodeAttachment(atts []model.Attachment, out interface{}) error {
	if len(atts) == 0 {
		return agenterr.New(agenterr.InvalidInput, "decodeAttachment", "no attachments present")
	}
	raw, err := json.Marshal(atts[0].Data.JSON)
	if err != nil {
		return agenterr.Wrap(agenterr.InvalidInput, "decodeAttachment", "marshal attachment payload", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return agenterr.Wrap(agenterr.InvalidInput, "decodeAttachment", "unmarshal attachment payload", err)
	}
	return nil
}

func threadIDOf(t *model.Thread, fallbackID string) string {
	if t != nil && t.ThID != "" {
		return t.ThID
	}
	return fallbackID
}
