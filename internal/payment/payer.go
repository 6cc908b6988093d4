package payment

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"farmersupply/internal/apperr"
)

const (
	maxDescriptionLen = 255
	maxItemNamesLen   = 200
	maxNameLen        = 50
	maxLocalPartLen   = 64

	fallbackDescription = "Order Payment"
	fallbackFirstName   = "Customer"
)

var (
	gatewayEmailPattern   = regexp.MustCompile(`^[a-z0-9._+-]+@[a-z0-9.-]+\.[a-z]{2,}$`)
	descriptionDisallowed = regexp.MustCompile(`[^A-Za-z0-9\s\-_.]`)
	whitespaceRun         = regexp.MustCompile(`\s+`)
)

// NormalizeEmail trims, lower-cases and strips every whitespace character.
func NormalizeEmail(raw string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(raw)), "")
}

// ValidateEmail applies the gateway's rules to an already normalized address.
// The error message names the rule that failed.
func ValidateEmail(email string) error {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return apperr.New(apperr.InvalidInput, "Invalid email format: address must contain exactly one @")
	}
	local, domain := parts[0], parts[1]

	if local == "" || len(local) > maxLocalPartLen {
		return apperr.New(apperr.InvalidInput, "Invalid email format: the part before @ must be 1 to 64 characters")
	}
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return apperr.New(apperr.InvalidInput, "Invalid email format: domain must contain a dot and cannot start or end with one")
	}
	if !gatewayEmailPattern.MatchString(email) {
		return apperr.Newf(apperr.InvalidInput, "Invalid email format: %s. Please use a valid email address (e.g., user@example.com)", email)
	}
	if strings.Contains(email, "..") || strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") {
		return apperr.New(apperr.InvalidInput, "Invalid email format: email cannot have consecutive dots or start/end with a dot")
	}
	return nil
}

// BuildDescription turns product names into the text the gateway accepts:
// letters, digits, spaces, dots, hyphens and underscores, at most 255 chars.
func BuildDescription(names []string) string {
	kept := make([]string, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			kept = append(kept, name)
		}
	}
	if len(kept) == 0 {
		return fallbackDescription
	}

	description := "Order " + truncateRunes(strings.Join(kept, ", "), maxItemNamesLen)
	description = descriptionDisallowed.ReplaceAllString(description, " ")
	description = strings.TrimSpace(whitespaceRun.ReplaceAllString(description, " "))
	if description == "" {
		return fallbackDescription
	}
	return truncateRunes(description, maxDescriptionLen)
}

// SplitName splits a display name on the first space.
func SplitName(displayName string) (first, last string) {
	displayName = strings.TrimSpace(displayName)
	first, last, _ = strings.Cut(displayName, " ")
	if first == "" {
		first = fallbackFirstName
	}
	return truncateRunes(first, maxNameLen), truncateRunes(strings.TrimSpace(last), maxNameLen)
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
