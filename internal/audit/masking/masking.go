package masking

import "strings"

const maskToken = "****"

// sensitiveSuffixes mark metadata keys whose values never reach storage
// in clear text.
var sensitiveSuffixes = []string{"token", "secret", "password", "authorization", "signature"}

// MaskSecret redacts a secret while keeping a minimal suffix for auditing.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	prefix, remainder := splitPrefix(trimmed)
	if len(remainder) <= 4 {
		return prefix + maskToken
	}

	return prefix + maskToken + remainder[len(remainder)-4:]
}

// IsSensitiveKey reports whether key names a credential-like value.
func IsSensitiveKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, suffix := range sensitiveSuffixes {
		if strings.HasSuffix(key, suffix) {
			return true
		}
	}
	return false
}

// MaskMetadata returns a copy of the input with the string values of
// sensitive keys masked. Nested maps and slices are walked.
func MaskMetadata(input map[string]any) map[string]any {
	if len(input) == 0 {
		return nil
	}

	masked := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		masked[trimmedKey] = maskValue(value, IsSensitiveKey(trimmedKey))
	}

	if len(masked) == 0 {
		return nil
	}
	return masked
}

func maskValue(value any, sensitive bool) any {
	switch cast := value.(type) {
	case string:
		if sensitive {
			return MaskSecret(cast)
		}
		return cast
	case map[string]any:
		if sensitive {
			out := make(map[string]any, len(cast))
			for k, v := range cast {
				out[k] = maskValue(v, true)
			}
			return out
		}
		return MaskMetadata(cast)
	case []any:
		out := make([]any, 0, len(cast))
		for _, item := range cast {
			out = append(out, maskValue(item, sensitive))
		}
		return out
	default:
		return value
	}
}

func splitPrefix(value string) (string, string) {
	lastUnderscore := strings.LastIndex(value, "_")
	if lastUnderscore == -1 || lastUnderscore == len(value)-1 {
		return "", value
	}
	return value[:lastUnderscore+1], value[lastUnderscore+1:]
}
