package validation

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"imbridge/internal/constants"
	"imbridge/internal/errors"
)

// ValidateIdentifier validates user, group and conversation identifiers
func ValidateIdentifier(fieldName, value string) error {
	if value == "" {
		return errors.NewValidationError(fieldName, "is required")
	}

	if len(value) > constants.MaxIdentifierLength {
		return errors.NewValidationError(fieldName,
			fmt.Sprintf("too long (max %d characters)", constants.MaxIdentifierLength))
	}

	for _, char := range value {
		if unicode.IsControl(char) || unicode.IsSpace(char) {
			return errors.NewValidationError(fieldName, "contains invalid characters")
		}
	}

	return nil
}

// ValidateToken validates an auth token without inspecting its format
func ValidateToken(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.NewValidationError(fieldName, "is required")
	}
	return nil
}

// ValidateText validates message text content
func ValidateText(fieldName, value string) error {
	if value == "" {
		return errors.NewValidationError(fieldName, "is required")
	}

	if len(value) > constants.MaxTextLength {
		return errors.NewValidationError(fieldName,
			fmt.Sprintf("too long (max %d bytes)", constants.MaxTextLength))
	}

	if !utf8.ValidString(value) {
		return errors.NewValidationError(fieldName, "is not valid UTF-8")
	}

	return nil
}

// ValidateEndpoint validates an absolute URL whose scheme is one of schemes
func ValidateEndpoint(fieldName, value string, schemes ...string) error {
	if value == "" {
		return errors.NewValidationError(fieldName, "is required")
	}

	if len(value) > constants.MaxEndpointLength {
		return errors.NewValidationError(fieldName,
			fmt.Sprintf("too long (max %d characters)", constants.MaxEndpointLength))
	}

	u, err := url.Parse(value)
	if err != nil || u.Host == "" {
		return errors.NewValidationError(fieldName, "must be an absolute URL")
	}

	for _, scheme := range schemes {
		if strings.EqualFold(u.Scheme, scheme) {
			return nil
		}
	}

	return errors.NewValidationError(fieldName,
		fmt.Sprintf("scheme must be one of %s", strings.Join(schemes, ", ")))
}

// ValidateHTTPRequestSize validates incoming HTTP request size
func ValidateHTTPRequestSize(r *http.Request, maxSizeBytes int64) error {
	if r.ContentLength > maxSizeBytes {
		return errors.NewValidationError("body",
			fmt.Sprintf("request too large: %d bytes (max %d bytes)", r.ContentLength, maxSizeBytes))
	}

	return nil
}

// ValidateNumericRange validates numeric values against bounds
func ValidateNumericRange(value int, fieldName string, min, max int) error {
	if value < min {
		return errors.NewValidationError(fieldName, fmt.Sprintf("too small (min %d)", min))
	}

	if value > max {
		return errors.NewValidationError(fieldName, fmt.Sprintf("too large (max %d)", max))
	}

	return nil
}

// ValidateTimeout validates timeout values
func ValidateTimeout(timeoutSec int, fieldName string) error {
	return ValidateNumericRange(timeoutSec, fieldName, 1, 3600)
}

// ValidateRetentionDays validates data retention period
func ValidateRetentionDays(days int) error {
	return ValidateNumericRange(days, "retentionDays", 1, 3650)
}
