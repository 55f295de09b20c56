// Package normalize turns Airtable records into canonical CRM entities.
package normalize

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/crm-sync/internal/model"
)

// Normalizer maps records for one run. Companies must be normalized before
// people and jobs so linked company records resolve.
type Normalizer struct {
	fields    *FieldMap
	now       time.Time
	companies map[string]*model.Company
}

// New creates a Normalizer. now stamps automation starts and is the
// created_at fallback.
func New(fields *FieldMap, now time.Time) *Normalizer {
	if fields == nil {
		fields = DefaultFieldMap()
	}
	return &Normalizer{
		fields:    fields,
		now:       now.UTC(),
		companies: make(map[string]*model.Company),
	}
}

// Normalize maps rec into the canonical shape for t.
func (n *Normalizer) Normalize(rec model.ExternalRecord, t model.EntityType) model.Entity {
	switch t {
	case model.EntityPerson:
		return n.Person(rec)
	case model.EntityCompany:
		return n.Company(rec)
	case model.EntityJob:
		return n.Job(rec)
	default:
		return nil
	}
}

// get returns the first non-empty value among the aliases of field.
func (n *Normalizer) get(rec model.ExternalRecord, t model.EntityType, field string) any {
	for _, alias := range n.fields.Aliases(t, field) {
		v, ok := rec.Fields[alias]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		return v
	}
	return nil
}

func (n *Normalizer) text(rec model.ExternalRecord, t model.EntityType, field string) string {
	return strings.TrimSpace(Text(n.get(rec, t, field)))
}

func (n *Normalizer) createdAt(rec model.ExternalRecord, t model.EntityType) time.Time {
	if d := ParseDate(n.get(rec, t, "created_at")); d != nil {
		return *d
	}
	if !rec.CreatedTime.IsZero() {
		return rec.CreatedTime.UTC()
	}
	return n.now
}

// Company normalizes a company record and indexes it for link resolution.
func (n *Normalizer) Company(rec model.ExternalRecord) *model.Company {
	const t = model.EntityCompany
	c := &model.Company{
		AirtableID:       rec.ID,
		Name:             n.text(rec, t, "name"),
		Website:          n.text(rec, t, "website"),
		LinkedInURL:      n.text(rec, t, "linkedin_url"),
		HeadOffice:       n.text(rec, t, "head_office"),
		Industry:         n.text(rec, t, "industry"),
		CompanySize:      n.text(rec, t, "company_size"),
		Priority:         n.text(rec, t, "priority"),
		AutomationActive: Truthy(n.get(rec, t, "automation")),
		LeadScore:        OptionalText(n.get(rec, t, "lead_score")),
		CreatedAt:        n.createdAt(rec, t),
	}
	n.companies[rec.ID] = c
	return c
}

// Person normalizes a person record.
func (n *Normalizer) Person(rec model.ExternalRecord) *model.Person {
	const t = model.EntityPerson
	p := &model.Person{
		AirtableID:        rec.ID,
		Name:              n.text(rec, t, "name"),
		CompanyRole:       n.text(rec, t, "company_role"),
		EmployeeLocation:  n.text(rec, t, "employee_location"),
		LinkedInURL:       n.text(rec, t, "linkedin_url"),
		Email:             n.text(rec, t, "email"),
		Stage:             model.MapStage(n.text(rec, t, "stage")),
		ConfidenceLevel:   n.text(rec, t, "confidence_level"),
		LeadSource:        n.text(rec, t, "lead_source"),
		ConnectionMessage: n.text(rec, t, "connection_message"),
		FollowUpMessage:   n.text(rec, t, "follow_up_message"),
		CreatedAt:         n.createdAt(rec, t),
	}
	if Truthy(n.get(rec, t, "automation")) {
		started := n.now
		p.AutomationStartedAt = &started
	}
	p.CompanyName, p.CompanyAirtableID = n.company(rec, t)
	return p
}

// Job normalizes a job record.
func (n *Normalizer) Job(rec model.ExternalRecord) *model.Job {
	const t = model.EntityJob
	j := &model.Job{
		AirtableID:   rec.ID,
		Title:        n.text(rec, t, "title"),
		Location:     n.text(rec, t, "location"),
		Description:  Truncate(n.text(rec, t, "description"), MaxLongText),
		Requirements: Truncate(n.text(rec, t, "requirements"), MaxLongText),
		Salary:       n.text(rec, t, "salary"),
		Status:       model.MapStage(n.text(rec, t, "status")),
		DatePosted:   ParseDate(n.get(rec, t, "date_posted")),
		CreatedAt:    n.createdAt(rec, t),
	}
	j.CompanyName, j.CompanyAirtableID = n.company(rec, t)
	return j
}

// company resolves the company cell. Linked record ids resolve through the
// company index; anything else is kept as a plain name.
func (n *Normalizer) company(rec model.ExternalRecord, t model.EntityType) (string, *string) {
	v := n.get(rec, t, "company")
	ids := RecordIDs(v)
	if len(ids) == 0 {
		return strings.TrimSpace(Text(v)), nil
	}

	id := ids[0]
	if len(ids) > 1 {
		zap.L().Debug("record links several companies, using the first",
			zap.String("record", rec.ID),
			zap.Strings("companies", ids),
		)
	}
	if c, ok := n.companies[id]; ok {
		return c.Name, &id
	}
	return "", &id
}
