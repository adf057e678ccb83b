package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// BodyKind tags which client shape a message body arrived in.
type BodyKind int

const (
	BodyEmpty BodyKind = iota
	BodyText
	BodyObject
	BodyFragments
	BodyParts
)

// Body is the tagged union of the message shapes the chat widget may send.
// BodyText and BodyObject carry Text; BodyFragments and BodyParts carry
// Fragments.
type Body struct {
	Kind      BodyKind
	Text      string
	Fragments []string
}

// String returns the canonical text for any body variant.
func (b Body) String() string {
	switch b.Kind {
	case BodyText, BodyObject:
		return b.Text
	case BodyFragments, BodyParts:
		return strings.Join(b.Fragments, "\n")
	default:
		return ""
	}
}

// Message is a single conversation turn as received from the client. It only
// lives for the duration of one request.
type Message struct {
	Role string
	Body Body
}

// IsUser reports whether the message was written by the site visitor.
func (m Message) IsUser() bool {
	return strings.EqualFold(strings.TrimSpace(m.Role), RoleUser)
}

type wireMessage struct {
	Role    json.RawMessage `json:"role"`
	Content json.RawMessage `json:"content"`
	Parts   json.RawMessage `json:"parts"`
	Text    json.RawMessage `json:"text"`
}

// UnmarshalJSON decodes any of the tolerated shapes. Shapes it does not
// recognise produce an empty body rather than an error.
func (m *Message) UnmarshalJSON(data []byte) error {
	*m = Message{}
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return nil
	}
	m.Role, _ = decodeString(w.Role)
	m.Body = decodeBody(w)
	return nil
}

// ParseMessages decodes a JSON value into messages. A value that is not an
// array yields no messages.
func ParseMessages(raw json.RawMessage) []Message {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil
	}
	var msgs []Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil
	}
	return msgs
}

func decodeBody(w wireMessage) Body {
	if s, ok := decodeString(w.Content); ok {
		return Body{Kind: BodyText, Text: s}
	}
	if t, ok := decodeTextObject(w.Content); ok {
		return Body{Kind: BodyObject, Text: t}
	}
	if frags, ok := decodeFragments(w.Content); ok {
		return Body{Kind: BodyFragments, Fragments: frags}
	}
	if frags, ok := decodeFragments(w.Parts); ok {
		return Body{Kind: BodyParts, Fragments: frags}
	}
	if s, ok := decodeString(w.Text); ok {
		return Body{Kind: BodyText, Text: s}
	}
	return Body{Kind: BodyEmpty}
}

func decodeString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func decodeTextObject(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return "", false
	}
	var obj struct {
		Text json.RawMessage `json:"text"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", false
	}
	return decodeString(obj.Text)
}

// decodeFragments accepts an array whose elements are strings or {text}
// objects. Elements of any other shape are skipped.
func decodeFragments(raw json.RawMessage) ([]string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	frags := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := decodeString(item); ok {
			frags = append(frags, s)
			continue
		}
		if s, ok := decodeTextObject(item); ok {
			frags = append(frags, s)
		}
	}
	return frags, true
}

// Order is the direction a client lists conversation history in.
type Order string

const (
	OrderOldestFirst Order = "oldest_first"
	OrderNewestFirst Order = "newest_first"
)

// ParseOrder accepts the two known values, case-insensitively. An empty value
// means oldest first.
func ParseOrder(s string) (Order, bool) {
	switch Order(strings.ToLower(strings.TrimSpace(s))) {
	case "", OrderOldestFirst:
		return OrderOldestFirst, true
	case OrderNewestFirst:
		return OrderNewestFirst, true
	default:
		return "", false
	}
}

// Chronological returns messages oldest first. The input is not modified.
func Chronological(msgs []Message, order Order) []Message {
	if order != OrderNewestFirst {
		return msgs
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[len(msgs)-1-i] = m
	}
	return out
}

// Generation is a single-turn prompt for the text model.
type Generation struct {
	Prompt          string
	Temperature     float64
	MaxOutputTokens int
}
