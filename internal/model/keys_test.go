package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildKeys_Person(t *testing.T) {
	k := BuildKeys(&Person{Name: "  Jane DOE ", LinkedInURL: "https://linkedin.com/in/jane ", Email: "jane@acme.com"})
	assert.Equal(t, "jane doe", k.NameLower)
	assert.Equal(t, "https://linkedin.com/in/jane", k.LinkedInURL)
	assert.Equal(t, "jane@acme.com", k.Email)
	assert.Empty(t, k.CompanyLower)
}

func TestBuildKeys_PersonOptionalKeysAbsent(t *testing.T) {
	k := BuildKeys(&Person{Name: "Jane"})
	assert.Equal(t, "jane", k.NameLower)
	assert.Empty(t, k.LinkedInURL)
	assert.Empty(t, k.Email)
}

func TestBuildKeys_Company(t *testing.T) {
	k := BuildKeys(&Company{Name: "Acme Corp", LinkedInURL: "https://linkedin.com/company/acme"})
	assert.Equal(t, "acme corp", k.NameLower)
	assert.Equal(t, "https://linkedin.com/company/acme", k.LinkedInURL)
	assert.Empty(t, k.Email)
}

func TestBuildKeys_Job(t *testing.T) {
	k := BuildKeys(&Job{Title: "Senior Go Engineer", CompanyName: "ACME"})
	assert.Equal(t, "senior go engineer", k.NameLower)
	assert.Equal(t, "acme", k.CompanyLower)
	assert.Empty(t, k.LinkedInURL)
}

func TestLower_Unicode(t *testing.T) {
	assert.Equal(t, "émile zola", Lower("ÉMILE ZOLA"))
	assert.Equal(t, "o'brien", Lower("O'Brien"))
}

func TestMatchKeySet_Parts(t *testing.T) {
	p := BuildKeys(&Person{Name: "Jane", Email: "j@x.io"}).Parts()
	assert.Equal(t, []string{"name:jane", "email:j@x.io"}, p)

	j := BuildKeys(&Job{Title: "Engineer", CompanyName: "Acme"}).Parts()
	assert.Equal(t, []string{"name:engineer|company:acme"}, j)
}
