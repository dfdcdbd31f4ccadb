package domain

import (
	"strconv"
	"strings"
	"time"
)

// Well-known header names used throughout the UI.
const (
	HeaderFrom    = "From"
	HeaderTo      = "To"
	HeaderSubject = "Subject"
	HeaderDate    = "Date"
)

// Header is one structured message header as the Gmail payload carries it.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Payload is the structured part of a message record. Only the headers
// survive the backend's metadata projection.
type Payload struct {
	Headers []Header `json:"headers"`
}

// Message is a message summary as returned by the backend. It is immutable
// once fetched. Depending on which projection the backend applied, header
// values live either in the flattened Headers map or in Payload.Headers.
type Message struct {
	ID           string            `json:"id"`
	Snippet      string            `json:"snippet"`
	Headers      map[string]string `json:"headers,omitempty"`
	Payload      *Payload          `json:"payload,omitempty"`
	InternalDate string            `json:"internalDate,omitempty"`
}

// Header returns the value for name, reading the flattened header map
// first and falling back to a case-sensitive scan of the structured
// payload headers. Missing headers yield the empty string.
func (m *Message) Header(name string) string {
	if v, ok := m.Headers[name]; ok {
		return v
	}
	if m.Payload != nil {
		for _, h := range m.Payload.Headers {
			if h.Name == name {
				return h.Value
			}
		}
	}
	return ""
}

// From returns the raw From header value.
func (m *Message) From() string { return m.Header(HeaderFrom) }

// Subject returns the Subject header value.
func (m *Message) Subject() string { return m.Header(HeaderSubject) }

// Date returns the best available timestamp for the message: the Gmail
// internalDate (milliseconds since the epoch) when present, otherwise the
// parsed Date header. The zero time means no usable timestamp.
func (m *Message) Date() time.Time {
	if m.InternalDate != "" {
		if ms, err := strconv.ParseInt(m.InternalDate, 10, 64); err == nil {
			return time.UnixMilli(ms)
		}
	}
	raw := m.Header(HeaderDate)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, "Mon, 2 Jan 2006 15:04:05 -0700 (MST)"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

// SenderName extracts a display name from a "Name <addr>" header value.
// A bare address is returned as-is.
func SenderName(from string) string {
	from = strings.TrimSpace(from)
	if idx := strings.LastIndex(from, "<"); idx > 0 {
		name := strings.TrimSpace(from[:idx])
		name = strings.Trim(name, `"`)
		if name != "" {
			return name
		}
	}
	return strings.Trim(from, "<>")
}
