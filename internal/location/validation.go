package location

import (
	"fmt"
	"regexp"
	"strings"
)

// Validation constants matching the device package conventions.
const (
	maxNameLength  = 100
	maxSlugLength  = 50
	maxAliasLength = 64
	maxAliases     = 20
	slugPattern    = `^[a-z0-9]+(?:-[a-z0-9]+)*$`
)

var (
	slugRegex    = regexp.MustCompile(slugPattern)
	slugStripper = regexp.MustCompile(`[^a-z0-9]+`)
)

// ValidateName checks if a room name is valid.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateSlug checks if a slug format is valid.
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("%w: slug cannot be empty", ErrInvalidSlug)
	}
	if len(slug) > maxSlugLength {
		return fmt.Errorf("%w: slug exceeds %d characters", ErrInvalidSlug, maxSlugLength)
	}
	if !slugRegex.MatchString(slug) {
		return fmt.Errorf("%w: slug must be lowercase alphanumeric with hyphens", ErrInvalidSlug)
	}
	return nil
}

// ValidateAlias checks a single spoken alias.
func ValidateAlias(alias string) error {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return fmt.Errorf("%w: alias cannot be empty", ErrInvalidAlias)
	}
	if len(alias) > maxAliasLength {
		return fmt.Errorf("%w: alias exceeds %d characters", ErrInvalidAlias, maxAliasLength)
	}
	return nil
}

// ValidateRoom checks all fields of a room. An empty slug is allowed and
// is generated from the name on create.
func ValidateRoom(r *Room) error {
	if err := ValidateName(r.Name); err != nil {
		return err
	}
	if r.Slug != "" {
		if err := ValidateSlug(r.Slug); err != nil {
			return err
		}
	}
	if len(r.Aliases) > maxAliases {
		return fmt.Errorf("%w: more than %d aliases", ErrInvalidAlias, maxAliases)
	}
	seen := make(map[string]struct{}, len(r.Aliases))
	for _, a := range r.Aliases {
		if err := ValidateAlias(a); err != nil {
			return err
		}
		key := strings.ToLower(strings.TrimSpace(a))
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate alias %q", ErrInvalidAlias, a)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// GenerateSlug derives a URL-safe slug from a room name.
// "Master Bedroom" -> "master-bedroom"
func GenerateSlug(name string) string {
	slug := slugStripper.ReplaceAllString(strings.ToLower(name), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	return slug
}
