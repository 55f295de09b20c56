package normalize

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/crm-sync/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var runTime = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

func rec(id string, fields map[string]any) model.ExternalRecord {
	return model.ExternalRecord{ID: id, Fields: fields}
}

func TestPerson_EndToEndScenario(t *testing.T) {
	n := New(nil, runTime)
	p := n.Person(rec("rec1", map[string]any{
		"Name":       "Jane Doe",
		"Stage":      "MSG SENT",
		"Automation": "Yes",
	}))

	assert.Equal(t, "rec1", p.AirtableID)
	assert.Equal(t, "Jane Doe", p.Name)
	assert.Equal(t, model.StageMessaged, p.Stage)
	require.NotNil(t, p.AutomationStartedAt)
	assert.Equal(t, runTime, *p.AutomationStartedAt)
}

func TestPerson_MissingFieldsDefault(t *testing.T) {
	n := New(nil, runTime)
	p := n.Person(rec("rec2", map[string]any{"Name": "Solo"}))

	assert.Empty(t, p.Email)
	assert.Empty(t, p.LinkedInURL)
	assert.Empty(t, p.CompanyName)
	assert.Nil(t, p.CompanyAirtableID)
	assert.Nil(t, p.AutomationStartedAt)
	assert.Equal(t, model.StageNew, p.Stage)
	assert.Equal(t, runTime, p.CreatedAt)
}

func TestPerson_KeepsQuotesRaw(t *testing.T) {
	n := New(nil, runTime)
	p := n.Person(rec("rec3", map[string]any{"Name": "O'Brien"}))
	assert.Equal(t, "O'Brien", p.Name)
}

func TestPerson_AliasesAndCreatedAt(t *testing.T) {
	n := New(nil, runTime)
	r := rec("rec4", map[string]any{
		"Full Name":        "Sam Lee",
		"Email Address":    "sam@example.com",
		"LinkedIn Profile": "https://linkedin.com/in/sam",
		"Status":           "REPLIED",
	})
	r.CreatedTime = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	p := n.Person(r)

	assert.Equal(t, "Sam Lee", p.Name)
	assert.Equal(t, "sam@example.com", p.Email)
	assert.Equal(t, "https://linkedin.com/in/sam", p.LinkedInURL)
	assert.Equal(t, model.StageReplied, p.Stage)
	assert.Equal(t, r.CreatedTime, p.CreatedAt)

	p2 := n.Person(rec("rec5", map[string]any{"Name": "X", "Created": "2024-02-03"}))
	assert.Equal(t, time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC), p2.CreatedAt)
}

func TestPerson_ResolvesLinkedCompany(t *testing.T) {
	n := New(nil, runTime)
	n.Company(rec("recCOMPANY0000001", map[string]any{"Name": "Acme Corp"}))

	p := n.Person(rec("recP", map[string]any{"Name": "Jane", "Company": []any{"recCOMPANY0000001"}}))
	assert.Equal(t, "Acme Corp", p.CompanyName)
	require.NotNil(t, p.CompanyAirtableID)
	assert.Equal(t, "recCOMPANY0000001", *p.CompanyAirtableID)

	orphan := n.Person(rec("recQ", map[string]any{"Name": "Joe", "Company": []any{"recUNKNOWN0000001"}}))
	assert.Empty(t, orphan.CompanyName)
	require.NotNil(t, orphan.CompanyAirtableID)

	plain := n.Person(rec("recR", map[string]any{"Name": "Ann", "Company": "Globex"}))
	assert.Equal(t, "Globex", plain.CompanyName)
	assert.Nil(t, plain.CompanyAirtableID)
}

func TestCompany_LeadScoreAndAutomation(t *testing.T) {
	n := New(nil, runTime)

	c := n.Company(rec("recC1", map[string]any{
		"Name":       "Acme",
		"Lead Score": []any{"Hot", "ICP"},
		"Automation": true,
	}))
	require.NotNil(t, c.LeadScore)
	assert.Equal(t, "Hot, ICP", *c.LeadScore)
	assert.True(t, c.AutomationActive)

	c2 := n.Company(rec("recC2", map[string]any{"Name": "Beta", "Lead Score": float64(72)}))
	require.NotNil(t, c2.LeadScore)
	assert.Equal(t, "72", *c2.LeadScore)
	assert.False(t, c2.AutomationActive)

	c3 := n.Company(rec("recC3", map[string]any{"Name": "Gamma"}))
	assert.Nil(t, c3.LeadScore)
}

func TestJob_TruncatesLongText(t *testing.T) {
	n := New(nil, runTime)
	j := n.Job(rec("recJ1", map[string]any{
		"Job Title":    "Go Engineer",
		"Description":  strings.Repeat("d", 600),
		"Requirements": strings.Repeat("r", 501),
		"Status":       "IN QUEUE",
		"Date Posted":  "not-a-date",
	}))

	assert.Equal(t, "Go Engineer", j.Title)
	assert.Len(t, j.Description, 500)
	assert.Len(t, j.Requirements, 500)
	assert.Equal(t, model.StageInQueue, j.Status)
	assert.Nil(t, j.DatePosted)
}

func TestNormalize_Dispatch(t *testing.T) {
	n := New(nil, runTime)
	r := rec("recX", map[string]any{"Name": "N", "Job Title": "T"})
	assert.IsType(t, &model.Person{}, n.Normalize(r, model.EntityPerson))
	assert.IsType(t, &model.Company{}, n.Normalize(r, model.EntityCompany))
	assert.IsType(t, &model.Job{}, n.Normalize(r, model.EntityJob))
	assert.Nil(t, n.Normalize(r, model.EntityType("other")))
}

func TestLoadFieldMap_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fields.yaml")
	require.NoError(t, os.WriteFile(path, []byte("person:\n  name: [Candidate]\n"), 0o644))

	fm, err := LoadFieldMap(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Candidate"}, fm.Aliases(model.EntityPerson, "name"))
	assert.Contains(t, fm.Aliases(model.EntityPerson, "email"), "Email")

	n := New(fm, runTime)
	p := n.Person(rec("rec1", map[string]any{"Candidate": "Jane", "Name": "ignored"}))
	assert.Equal(t, "Jane", p.Name)
}

func TestLoadFieldMap_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fields.yaml")
	require.NoError(t, os.WriteFile(path, []byte("job:\n  bonus: [Bonus]\n"), 0o644))

	_, err := LoadFieldMap(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job.bonus")
}

func TestLoadFieldMap_DefaultsAreValid(t *testing.T) {
	fm, err := LoadFieldMap("")
	require.NoError(t, err)
	assert.NoError(t, fm.Validate())
	for _, tpe := range model.EntityTypes() {
		assert.NotEmpty(t, fm.Aliases(tpe, "created_at"))
	}
}
