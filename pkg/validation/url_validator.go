package validation

import (
	"net/url"
	"slices"
	"strings"

	apperrors "go-media-identifier/internal/errors"
)

// URLValidator screens frame URLs before any fetch is attempted, so that
// malformed input is rejected as a validation error rather than surfacing
// later as a network failure mid-pipeline.
type URLValidator struct {
	allowedSchemes []string
	allowedHosts   map[string]struct{} // nil means all hosts allowed
}

// NewURLValidator creates a validator that accepts http and https URLs from
// any host.
func NewURLValidator() *URLValidator {
	return NewURLValidatorWithOptions([]string{"http", "https"}, nil)
}

// NewURLValidatorWithOptions creates a validator restricted to the given
// schemes and, when hosts is non-empty, the given hosts. Host comparison is
// case-insensitive and ignores the port.
func NewURLValidatorWithOptions(schemes []string, hosts []string) *URLValidator {
	v := &URLValidator{allowedSchemes: schemes}
	if len(hosts) > 0 {
		v.allowedHosts = make(map[string]struct{}, len(hosts))
		for _, h := range hosts {
			v.allowedHosts[strings.ToLower(h)] = struct{}{}
		}
	}
	return v
}

// ValidateImageURL reports whether imageURL is acceptable as a frame source.
func (v *URLValidator) ValidateImageURL(imageURL string) error {
	if strings.TrimSpace(imageURL) == "" {
		return apperrors.NewValidationError("URL cannot be empty", nil)
	}

	parsed, err := url.Parse(imageURL)
	if err != nil {
		return apperrors.NewValidationError("Invalid URL format", err)
	}

	if !slices.Contains(v.allowedSchemes, parsed.Scheme) {
		return apperrors.NewValidationError("URL scheme not allowed", nil)
	}

	if parsed.User != nil {
		return apperrors.NewValidationError("URL must not embed credentials", nil)
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return apperrors.NewValidationError("URL must have a valid host", nil)
	}

	if v.allowedHosts != nil {
		if _, ok := v.allowedHosts[host]; !ok {
			return apperrors.NewValidationError("URL host not allowed", nil)
		}
	}

	return nil
}
