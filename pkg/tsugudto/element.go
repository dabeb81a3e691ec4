package tsugudto

import (
	"bytes"
	"encoding/json"
)

const (
	ElementString = "string"
	ElementBase64 = "base64"
)

// Element is one item of a reply. Only string elements are interpreted by the bot;
// anything else returned by the backend is passed through to the presenter untouched.
//
// A decoded element keeps its full JSON in Raw and encodes back to exactly those bytes,
// so fields other than type and string survive a round trip. Elements built in code
// have no Raw and encode as {type, string}.
type Element struct {
	Type   string          `json:"type"`
	String string          `json:"string"`
	Raw    json.RawMessage `json:"-"`
}

func (e *Element) UnmarshalJSON(b []byte) error {
	var head struct {
		Type   string          `json:"type"`
		String json.RawMessage `json:"string"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return err
	}
	e.Type = head.Type
	e.String = ""
	// a non-string "string" field belongs to some other element shape; Raw still carries it
	if s := bytes.TrimSpace(head.String); len(s) > 0 && s[0] == '"' {
		if err := json.Unmarshal(s, &e.String); err != nil {
			return err
		}
	}
	e.Raw = append(json.RawMessage(nil), b...)
	return nil
}

func (e Element) MarshalJSON() ([]byte, error) {
	if len(e.Raw) > 0 {
		return e.Raw, nil
	}
	return json.Marshal(struct {
		Type   string `json:"type"`
		String string `json:"string"`
	}{e.Type, e.String})
}

func Text(s string) Element { return Element{Type: ElementString, String: s} }

// TextReply is the one-element reply used for help, denial and diagnostic texts.
func TextReply(s string) []Element { return []Element{Text(s)} }
