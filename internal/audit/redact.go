package audit

// RedactedValue replaces sensitive values in persisted snapshots.
const RedactedValue = "[REDACTED]"

var sensitiveKeys = map[string]struct{}{
	"password":              {},
	"password_confirmation": {},
	"current_password":      {},
	"new_password":          {},
	"token":                 {},
	"api_token":             {},
	"remember_token":        {},
	"secret":                {},
}

// Redact returns a copy of values with sensitive keys masked. A nil map
// stays nil. The input map is never mutated.
func Redact(values map[string]any) map[string]any {
	if values == nil {
		return nil
	}
	out := make(map[string]any, len(values))
	for key, value := range values {
		if _, sensitive := sensitiveKeys[key]; sensitive {
			out[key] = RedactedValue
			continue
		}
		out[key] = value
	}
	return out
}
