package service

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"

	"github.com/microcosm-cc/bluemonday"
)

var plainText = bluemonday.StrictPolicy()

// cleanText strips markup and surrounding space from user input. An empty
// result fails validation when required.
func cleanText(field, raw string, maxLen int, required bool) (string, error) {
	s := html.UnescapeString(plainText.Sanitize(raw))
	s = strings.Join(strings.Fields(s), " ")

	if s == "" && required {
		return "", &domain.ErrValidation{Field: field, Message: "is required"}
	}
	if utf8.RuneCountInString(s) > maxLen {
		return "", &domain.ErrValidation{Field: field, Message: "is too long"}
	}
	return s, nil
}
