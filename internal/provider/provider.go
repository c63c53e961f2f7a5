package provider

// RawRecord is one provider's raw-schema payload, transient until the
// normalizer maps it into the canonical record.
type RawRecord map[string]interface{}

// String returns the value under key when it is a non-empty string.
func (r RawRecord) String(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// Float returns the value under key when it is numeric.
func (r RawRecord) Float(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}
