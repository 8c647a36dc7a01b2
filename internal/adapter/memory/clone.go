package memory

import (
	"encoding/json"
	"fmt"

	"github.com/voyago/voyago/internal/domain/thread"
	"github.com/voyago/voyago/internal/port/threadstore"
)

// cloneThread deep-copies a thread so callers never alias store-owned state.
func cloneThread(th *thread.Thread) *thread.Thread {
	c := *th
	c.Messages = append([]thread.Message(nil), th.Messages...)
	c.PreviouslyInvokedAgents = append([]string(nil), th.PreviouslyInvokedAgents...)
	c.DetectedIntents = append([]string(nil), th.DetectedIntents...)
	c.PartialResults = clonePartials(th.PartialResults)
	c.Checkpoint = append(json.RawMessage(nil), th.Checkpoint...)
	return &c
}

func clonePartials(in map[string]json.RawMessage) map[string]json.RawMessage {
	if in == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(in))
	for k, v := range in {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

func encodeCheckpoint(cp *threadstore.Checkpoint) (json.RawMessage, error) {
	data, err := json.Marshal(cp)
	if err != nil {
		return nil, fmt.Errorf("encode checkpoint: %w", err)
	}
	return data, nil
}
