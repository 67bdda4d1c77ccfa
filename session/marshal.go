package session

import "encoding/json"

// marshalArguments encodes a generic arguments map into the json.RawMessage
// shape DAP request types that don't have a fully-typed Arguments struct
// (launch, attach) expect.
func marshalArguments(args map[string]any) (json.RawMessage, error) {
	b, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}
