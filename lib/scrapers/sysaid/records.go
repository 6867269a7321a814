package sysaid

import (
	"bytes"
	"encoding/json"
)

// RawRecord is a single service record as returned by the api. only `info`
// is retained, it is decoded lazily so that one malformed record never
// fails the page it arrived in.
type RawRecord struct {
	Info json.RawMessage `json:"info,omitempty"`
}

func (r *RawRecord) UnmarshalJSON(data []byte) error {
	var obj struct {
		Info json.RawMessage `json:"info"`
	}
	err := json.Unmarshal(data, &obj)
	if err != nil {
		// not an object, treat as a record without info
		r.Info = nil
		return nil
	}
	r.Info = obj.Info
	return nil
}

type InfoEntry struct {
	KeyCaption string
	// nil when the api sent nothing or a falsy value (null, "", 0, false)
	ValueCaption *string
}

// Entries decodes `info`. ok is false when `info` is missing or is not a
// list, entries whose keyCaption is not a string are skipped.
func (r RawRecord) Entries() (entries []InfoEntry, ok bool) {
	var raw []json.RawMessage
	err := json.Unmarshal(r.Info, &raw)
	if err != nil || raw == nil {
		return nil, false
	}

	entries = make([]InfoEntry, 0, len(raw))
	for _, elem := range raw {
		var fields struct {
			KeyCaption   json.RawMessage `json:"keyCaption"`
			ValueCaption json.RawMessage `json:"valueCaption"`
		}
		err := json.Unmarshal(elem, &fields)
		if err != nil {
			continue
		}
		var key string
		err = json.Unmarshal(fields.KeyCaption, &key)
		if err != nil {
			continue
		}
		entries = append(entries, InfoEntry{
			KeyCaption:   key,
			ValueCaption: decodeCaption(fields.ValueCaption),
		})
	}
	return entries, true
}

func decodeCaption(raw json.RawMessage) *string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	var s string
	err := json.Unmarshal(raw, &s)
	if err == nil {
		if s == "" {
			return nil
		}
		return &s
	}

	switch value := scalar(raw).(type) {
	case bool:
		if !value {
			return nil
		}
	case float64:
		if value == 0 {
			return nil
		}
	}

	// other numbers, true and nested values keep their compact json text
	var compact bytes.Buffer
	err = json.Compact(&compact, raw)
	if err != nil {
		return nil
	}
	text := compact.String()
	return &text
}

func scalar(raw json.RawMessage) any {
	var value any
	err := json.Unmarshal(raw, &value)
	if err != nil {
		return nil
	}
	return value
}
