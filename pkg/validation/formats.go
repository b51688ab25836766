package validation

import (
	"net/url"
	"regexp"
	"strings"
	"time"
)

// FormatChecker validates a string against a named format.
type FormatChecker func(value string) bool

// formatCheckers maps format names to their checks. Unknown formats pass.
var formatCheckers = map[string]FormatChecker{
	"email":     validEmail,
	"uuid":      validUUID,
	"date":      validDate,
	"date-time": validDateTime,
	"uri":       validURI,
}

// ValidFormat reports whether value satisfies the named format.
// Unrecognized formats always pass.
func ValidFormat(format, value string) bool {
	checker, ok := formatCheckers[strings.ToLower(format)]
	if !ok {
		return true
	}
	return checker(value)
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func validEmail(value string) bool {
	return emailPattern.MatchString(value)
}

var uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

func validUUID(value string) bool {
	return uuidPattern.MatchString(value)
}

func validDate(value string) bool {
	layouts := []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"}
	for _, layout := range layouts {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}

func validDateTime(value string) bool {
	layouts := []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}
	for _, layout := range layouts {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}

func validURI(value string) bool {
	u, err := url.Parse(value)
	return err == nil && u.IsAbs()
}
