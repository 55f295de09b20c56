package model

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MatchKeySet holds the identity keys used to find an existing row for an
// entity. NameLower is always set; the rest are empty when the source field
// was empty.
type MatchKeySet struct {
	NameLower    string
	LinkedInURL  string
	Email        string
	CompanyLower string
}

// BuildKeys derives the match keys for an entity. Person matches on name,
// LinkedIn URL or email; Company on name or LinkedIn URL; Job on title
// combined with company name.
func BuildKeys(e Entity) MatchKeySet {
	switch v := e.(type) {
	case *Person:
		return MatchKeySet{
			NameLower:   Lower(v.Name),
			LinkedInURL: strings.TrimSpace(v.LinkedInURL),
			Email:       strings.TrimSpace(v.Email),
		}
	case *Company:
		return MatchKeySet{
			NameLower:   Lower(v.Name),
			LinkedInURL: strings.TrimSpace(v.LinkedInURL),
		}
	case *Job:
		return MatchKeySet{
			NameLower:    Lower(v.Title),
			CompanyLower: Lower(v.CompanyName),
		}
	default:
		return MatchKeySet{NameLower: Lower(e.Identity())}
	}
}

// Lower trims and lower-cases s the way the target's lower() does.
func Lower(s string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(s))
}

// Parts returns each key as a labelled string. Two records of the same type
// that share any part would match the same row.
func (k MatchKeySet) Parts() []string {
	name := "name:" + k.NameLower
	if k.CompanyLower != "" {
		name += "|company:" + k.CompanyLower
	}
	parts := []string{name}
	if k.LinkedInURL != "" {
		parts = append(parts, "linkedin:"+k.LinkedInURL)
	}
	if k.Email != "" {
		parts = append(parts, "email:"+k.Email)
	}
	return parts
}
