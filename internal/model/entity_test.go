package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func columnNames(cols []Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

func TestEntityType_Table(t *testing.T) {
	assert.Equal(t, "people", EntityPerson.Table())
	assert.Equal(t, "companies", EntityCompany.Table())
	assert.Equal(t, "jobs", EntityJob.Table())
	assert.Empty(t, EntityType("other").Table())
	assert.Equal(t, []EntityType{EntityPerson, EntityCompany, EntityJob}, EntityTypes())
}

func TestPerson_Columns(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p := &Person{AirtableID: "rec1", Name: "Jane", Stage: StageMessaged, CreatedAt: now}

	assert.Equal(t, EntityPerson, p.Type())
	assert.Equal(t, "rec1", p.ExternalID())
	assert.Equal(t, "Jane", p.Identity())

	cols := p.Columns()
	assert.Contains(t, columnNames(cols), "automation_started_at")
	assert.NotContains(t, columnNames(cols), "airtable_id")
	for _, c := range cols {
		if c.Name == "stage" {
			assert.Equal(t, StageMessaged, c.Value)
		}
	}
}

func TestCompanyAndJob_Identity(t *testing.T) {
	c := &Company{AirtableID: "recC", Name: "Acme"}
	j := &Job{AirtableID: "recJ", Title: "Engineer"}
	assert.Equal(t, "Acme", c.Identity())
	assert.Equal(t, "Engineer", j.Identity())
	assert.Equal(t, EntityCompany, c.Type())
	assert.Equal(t, EntityJob, j.Type())
	assert.Contains(t, columnNames(c.Columns()), "lead_score")
	assert.Contains(t, columnNames(j.Columns()), "date_posted")
}
