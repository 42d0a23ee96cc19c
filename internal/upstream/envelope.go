package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// The backend does not guarantee a single response shape for list
// endpoints. Normalization runs a small ordered set of typed decoders;
// each either matches and yields the canonical sequence or declines. When
// every decoder declines the caller gets ErrUnrecognizedEnvelope, which is
// recoverable (empty list plus an "unavailable" notice, not an error).

// listEnvelope extracts the raw JSON array from one of the known envelope
// shapes, tried in order: a bare array, then each wrapper key, then the
// paginated {content: [...]}, then {success, data: [...]}.
func listEnvelope(data []byte, wrapperKeys ...string) (json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrUnrecognizedEnvelope
	}

	if data[0] == '[' {
		return json.RawMessage(data), nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, ErrUnrecognizedEnvelope
	}

	keys := append(append([]string{}, wrapperKeys...), "content")
	for _, key := range keys {
		if raw, ok := wrapper[key]; ok && isArray(raw) {
			return raw, nil
		}
	}

	if successRaw, ok := wrapper["success"]; ok {
		var success bool
		if err := json.Unmarshal(successRaw, &success); err == nil && success {
			if raw, ok := wrapper["data"]; ok && isArray(raw) {
				return raw, nil
			}
		}
	}

	return nil, ErrUnrecognizedEnvelope
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

// decodeList normalizes a list response body into items, in source order.
func decodeList[T any](op string, data []byte, wrapperKeys ...string) ([]T, error) {
	raw, err := listEnvelope(data, wrapperKeys...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &RemoteError{Op: op, Message: fmt.Sprintf("malformed list payload: %v", err)}
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// objectEnvelope unwraps a single-object response that may arrive bare or
// inside {success, data: {...}} / {data: {...}}.
func objectEnvelope(data []byte) json.RawMessage {
	data = bytes.TrimSpace(data)
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return json.RawMessage(data)
	}
	if raw, ok := wrapper["data"]; ok && isObject(raw) {
		return raw
	}
	return json.RawMessage(data)
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}
