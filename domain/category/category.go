// Package category provides pure validation for event categories.
// This package has NO dependencies on I/O or external packages.
package category

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxNameLen is the longest accepted category name.
	MaxNameLen = 64
	// MaxEmojiLen bounds the emoji field in runes. Some emoji are built
	// from several code points joined together.
	MaxEmojiLen = 8
)

var (
	namePattern  = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)
	colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

// Validation errors. Their messages are shown to API clients.
var (
	ErrNameRequired = errors.New("Category name is required.")
	ErrNameTooLong  = fmt.Errorf("Category name must be at most %d characters.", MaxNameLen)
	ErrNameInvalid  = errors.New("Category name can only contain letters, numbers or hyphens.")
	ErrColorInvalid = errors.New("Invalid color format.")
	ErrEmojiInvalid = errors.New("Invalid emoji.")
)

// ValidateName checks a category name. This is a PURE function.
func ValidateName(name string) error {
	switch {
	case name == "":
		return ErrNameRequired
	case len(name) > MaxNameLen:
		return ErrNameTooLong
	case !namePattern.MatchString(name):
		return ErrNameInvalid
	}
	return nil
}

// ParseColor parses "#RRGGBB" into 0xRRGGBB. This is a PURE function.
func ParseColor(s string) (int, error) {
	if !colorPattern.MatchString(s) {
		return 0, ErrColorInvalid
	}
	n, err := strconv.ParseInt(s[1:], 16, 32)
	if err != nil {
		return 0, ErrColorInvalid
	}
	return int(n), nil
}

// FormatColor renders 0xRRGGBB as "#rrggbb".
func FormatColor(c int) string {
	return fmt.Sprintf("#%06x", c&0xFFFFFF)
}

// ValidateEmoji accepts an empty string or a short run of symbols.
// Letters, digits, whitespace and control characters are rejected.
func ValidateEmoji(s string) error {
	if s == "" {
		return nil
	}
	if !utf8.ValidString(s) || utf8.RuneCountInString(s) > MaxEmojiLen {
		return ErrEmojiInvalid
	}
	for _, r := range s {
		if r < utf8.RuneSelf || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || unicode.IsControl(r) {
			return ErrEmojiInvalid
		}
	}
	return nil
}

// Normalize trims surrounding whitespace from user input.
func Normalize(name, color, emoji string) (string, string, string) {
	return strings.TrimSpace(name), strings.TrimSpace(color), strings.TrimSpace(emoji)
}
