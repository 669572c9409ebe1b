// Package domain implements the profile flattening engine: field extraction
// across historical document shapes, employment history analysis, and the
// normalizer that turns one source document into a flattened record.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Document is one semi-structured profile payload held as raw JSON.
type Document struct {
	raw []byte
}

// DocumentFromJSON wraps raw JSON bytes. Only a JSON object is a valid
// document; anything else is a hard failure.
func DocumentFromJSON(raw []byte) (Document, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Document{}, nil
	}
	if !gjson.ValidBytes(trimmed) {
		return Document{}, fmt.Errorf("document is not valid JSON")
	}
	if parsed := gjson.ParseBytes(trimmed); !parsed.IsObject() {
		return Document{}, fmt.Errorf("document is not a JSON object")
	}
	return Document{raw: trimmed}, nil
}

// DocumentFromMap serializes a decoded document map. Marshaling sorts object
// keys, so equal maps always produce the same bytes.
func DocumentFromMap(m map[string]any) (Document, error) {
	if m == nil {
		return Document{}, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return Document{}, fmt.Errorf("encode document: %w", err)
	}
	return Document{raw: raw}, nil
}

// IsEmpty reports whether the document carries no payload.
func (d Document) IsEmpty() bool {
	return len(d.raw) == 0 || bytes.Equal(d.raw, []byte("{}")) || bytes.Equal(d.raw, []byte("null"))
}

// Raw returns the verbatim JSON carried into the flattened record.
func (d Document) Raw() json.RawMessage {
	return json.RawMessage(d.raw)
}

func (d Document) get(path string) gjson.Result {
	return gjson.GetBytes(d.raw, path)
}
