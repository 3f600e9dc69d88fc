package audit

import (
	"encoding/json"
	"strings"
)

const redactedValue = "[REDACTED]"

// sensitiveKeys are matched against normalised field names (lowercase,
// dashes and spaces folded to underscores).
var sensitiveKeys = map[string]struct{}{
	"password":      {},
	"passwd":        {},
	"pwd":           {},
	"token":         {},
	"access_token":  {},
	"refresh_token": {},
	"id_token":      {},
	"session_token": {},
	"secret":        {},
	"client_secret": {},
	"api_key":       {},
	"apikey":        {},
	"private_key":   {},
	"authorization": {},
	"cookie":        {},
	"ssn":           {},
	"credit_card":   {},
	"card_number":   {},
	"cvv":           {},
}

// sensitiveFragments catch compound names such as "db_password".
var sensitiveFragments = []string{"password", "secret", "token", "api_key"}

// IsSensitiveKey reports whether a field or attribute name carries a
// credential or identifier that must never be written out verbatim.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	k = strings.NewReplacer("-", "_", " ", "_").Replace(k)
	if _, ok := sensitiveKeys[k]; ok {
		return true
	}
	for _, f := range sensitiveFragments {
		if strings.Contains(k, f) {
			return true
		}
	}
	return false
}

// textRedactor masks PII-shaped substrings. *classifier.Classifier
// satisfies it.
type textRedactor interface {
	Redact(content string) string
}

type scrubber struct {
	text textRedactor
}

// value redacts an arbitrary snapshot. Composite values are normalised
// through JSON first so struct fields are covered as well.
func (s scrubber) value(v any) any {
	if v == nil {
		return nil
	}
	return s.walk(normalise(v))
}

// metadata redacts a metadata map, returning nil for an empty one.
func (s scrubber) metadata(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out, _ := s.value(m).(map[string]any)
	return out
}

func (s scrubber) walk(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			if IsSensitiveKey(k) {
				out[k] = redactedValue
				continue
			}
			out[k] = s.walk(child)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = s.walk(child)
		}
		return out
	case string:
		if s.text == nil {
			return t
		}
		return s.text.Redact(t)
	default:
		return t
	}
}

func normalise(v any) any {
	switch v.(type) {
	case string, bool, float64, json.Number:
		return v
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return redactedValue
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return redactedValue
	}
	return out
}
