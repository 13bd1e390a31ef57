package api

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ServerConfig represents the /api/config response.
type ServerConfig struct {
	EmailDomains DomainList `json:"emailDomains"`
}

// DomainList decodes either a comma-separated string or a JSON array of
// domains. Blank entries are dropped.
type DomainList []string

// UnmarshalJSON implements json.Unmarshaler.
func (d *DomainList) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var parts []string
	switch v := raw.(type) {
	case string:
		parts = strings.Split(v, ",")
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
	}

	domains := make(DomainList, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			domains = append(domains, p)
		}
	}
	*d = domains
	return nil
}

// CreateMailboxRequest represents the POST /api/emails/generate request.
type CreateMailboxRequest struct {
	Name string `json:"name"`
	// ExpiryTime is the mailbox lifetime in milliseconds.
	ExpiryTime int64  `json:"expiryTime"`
	Domain     string `json:"domain"`
}

// CreateMailboxResponse represents the POST /api/emails/generate response.
type CreateMailboxResponse struct {
	Email string `json:"email"`
	ID    string `json:"id"`
}

// MessageList represents the /api/emails/{id} response. Entries are kept
// as loosely typed Fields because providers disagree on field names.
type MessageList struct {
	Messages   []Fields `json:"messages"`
	NextCursor string   `json:"nextCursor,omitempty"`
}

// Fields is a decoded JSON object with permissive, multi-key lookup.
type Fields map[string]any

// String returns the first value among keys that is present and non-empty,
// rendered as a string. Arrays are rendered by concatenating the string
// form of each element.
func (f Fields) String(keys ...string) string {
	for _, k := range keys {
		if s := stringify(f[k]); s != "" {
			return s
		}
	}
	return ""
}

// Value returns the raw value of the first key among keys whose string form
// is non-empty, or nil.
func (f Fields) Value(keys ...string) any {
	for _, k := range keys {
		if v, ok := f[k]; ok && stringify(v) != "" {
			return v
		}
	}
	return nil
}

// Unwrap returns the object nested under key, or f itself when key is
// absent or does not hold an object. Only one level is peeled.
func (f Fields) Unwrap(key string) Fields {
	if inner, ok := f[key].(map[string]any); ok {
		return Fields(inner)
	}
	return f
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case []any:
		var b strings.Builder
		for _, item := range t {
			b.WriteString(fragment(item))
		}
		return b.String()
	default:
		return ""
	}
}

func fragment(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
