package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/muninarayansingh23-code/EasyBiz-AI/internal/domain"
)

func timestamp(now time.Time) string {
	return now.UTC().Format(time.RFC3339)
}

// isPhoneKey reports whether a users key is a phone number, i.e. a
// pre-login invite rather than a uid.
func isPhoneKey(key string) bool {
	return strings.HasPrefix(key, "+")
}

func decodeProfile(raw json.RawMessage) (domain.ProfileDocument, error) {
	var doc domain.ProfileDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("decode profile: %w", err)
	}
	return doc, nil
}

// profileFromFields normalizes a document that is about to be, or has just
// been, written under key.
func profileFromFields(key string, fields map[string]any) (domain.Profile, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return domain.Profile{}, err
	}
	doc, err := decodeProfile(raw)
	if err != nil {
		return domain.Profile{}, err
	}
	return normalizeStored(key, doc), nil
}

// normalizeStored normalizes a users document using its key to tell invites
// from registered profiles.
func normalizeStored(key string, doc domain.ProfileDocument) domain.Profile {
	source := domain.SourceUID
	if isPhoneKey(key) {
		source = domain.SourcePhone
	}
	p := domain.NormalizeProfile(doc, source)
	if p.UID == "" && source == domain.SourceUID {
		p.UID = key
	}
	if p.PhoneNumber == "" && source == domain.SourcePhone {
		p.PhoneNumber = key
	}
	return p
}

func decodeBusiness(raw json.RawMessage) (domain.Business, error) {
	var b domain.Business
	if err := json.Unmarshal(raw, &b); err != nil {
		return b, fmt.Errorf("decode business: %w", err)
	}
	return b.Normalize(), nil
}
