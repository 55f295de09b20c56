// Package plan builds reconciliation plans: the ordered UPDATE, INSERT,
// link and DELETE statements that bring the CRM tables in line with a
// snapshot of Airtable.
package plan

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/crm-sync/internal/model"
)

// Input is the normalized snapshot of one run.
type Input struct {
	RunID       string
	GeneratedAt time.Time
	People      []*model.Person
	Companies   []*model.Company
	Jobs        []*model.Job
	// Complete marks entity types whose fetch read every page. Types
	// missing from the map are treated as incomplete.
	Complete map[model.EntityType]bool
}

// Options tunes planning.
type Options struct {
	// AllowEmptyCleanup permits a cleanup when a complete fetch returned
	// no records, which deletes every linked row of that table.
	AllowEmptyCleanup bool
}

// Skipped is a record left out of the plan.
type Skipped struct {
	Entity     model.EntityType `json:"entity"`
	ExternalID string           `json:"external_id"`
	Reason     string           `json:"reason"`
}

// Duplicate is a group of records in one fetch sharing a match key. Only
// the first can land a row.
type Duplicate struct {
	Entity      model.EntityType `json:"entity"`
	Key         string           `json:"key"`
	ExternalIDs []string         `json:"external_ids"`
}

// CleanupSkip explains why a table got no cleanup statement.
type CleanupSkip struct {
	Entity model.EntityType `json:"entity"`
	Reason string           `json:"reason"`
}

// Plan is the ordered statement list of one run.
type Plan struct {
	RunID          string                   `json:"run_id"`
	GeneratedAt    time.Time                `json:"generated_at"`
	Records        map[model.EntityType]int `json:"records"`
	Updates        []Statement              `json:"updates"`
	Inserts        []Statement              `json:"inserts"`
	Links          []Statement              `json:"links"`
	Deletes        []Statement              `json:"deletes"`
	CleanupSkipped []CleanupSkip            `json:"cleanup_skipped,omitempty"`
	Skipped        []Skipped                `json:"skipped,omitempty"`
	Duplicates     []Duplicate              `json:"duplicates,omitempty"`
}

// Statements returns every statement in execution order: updates, inserts,
// links, deletes.
func (p *Plan) Statements() []Statement {
	out := make([]Statement, 0, len(p.Updates)+len(p.Inserts)+len(p.Links)+len(p.Deletes))
	out = append(out, p.Updates...)
	out = append(out, p.Inserts...)
	out = append(out, p.Links...)
	out = append(out, p.Deletes...)
	return out
}

// Summary condenses the plan for the run log.
func (p *Plan) Summary() *model.RunSummary {
	s := &model.RunSummary{
		Records:    make(map[model.EntityType]int, len(p.Records)),
		Updates:    len(p.Updates),
		Inserts:    len(p.Inserts),
		Links:      len(p.Links),
		Deletes:    len(p.Deletes),
		Skipped:    len(p.Skipped),
		Duplicates: len(p.Duplicates),
	}
	for k, v := range p.Records {
		s.Records[k] = v
	}
	return s
}

// Planner turns normalized entities into a Plan.
type Planner struct {
	opts Options
}

// New creates a Planner.
func New(opts Options) *Planner {
	return &Planner{opts: opts}
}

// Plan builds the plan for in. Entity types are processed person, company,
// job; within the plan all updates precede all inserts.
func (pl *Planner) Plan(in Input) *Plan {
	log := zap.L().With(zap.String("component", "plan"), zap.String("run_id", in.RunID))

	p := &Plan{
		RunID:       in.RunID,
		GeneratedAt: in.GeneratedAt.UTC(),
		Records:     make(map[model.EntityType]int, 3),
	}

	byType := map[model.EntityType][]model.Entity{
		model.EntityPerson:  entities(in.People),
		model.EntityCompany: entities(in.Companies),
		model.EntityJob:     entities(in.Jobs),
	}

	for _, t := range model.EntityTypes() {
		list := byType[t]
		p.Records[t] = len(list)

		for _, e := range list {
			if strings.TrimSpace(e.Identity()) == "" {
				p.Skipped = append(p.Skipped, Skipped{Entity: t, ExternalID: e.ExternalID(), Reason: "empty name"})
				log.Warn("skipping record with empty name", zap.String("entity", string(t)), zap.String("record", e.ExternalID()))
				continue
			}
			keys := model.BuildKeys(e)
			p.Updates = append(p.Updates, PlanUpdate(e, keys))
			p.Inserts = append(p.Inserts, PlanInsert(e, keys))
		}

		for _, d := range findDuplicates(t, list) {
			log.Warn("records share a match key, only the first can be reconciled",
				zap.String("entity", string(t)),
				zap.String("key", d.Key),
				zap.Strings("records", d.ExternalIDs),
			)
			p.Duplicates = append(p.Duplicates, d)
		}
	}

	for _, t := range []model.EntityType{model.EntityPerson, model.EntityJob} {
		if hasCompanyLinks(byType[t]) {
			p.Links = append(p.Links, PlanLink(t))
		}
	}

	for _, t := range model.EntityTypes() {
		list := byType[t]
		switch {
		case !in.Complete[t]:
			p.CleanupSkipped = append(p.CleanupSkipped, CleanupSkip{Entity: t, Reason: "fetch incomplete"})
			log.Warn("cleanup skipped, fetch incomplete", zap.String("entity", string(t)))
		case len(list) == 0 && !pl.opts.AllowEmptyCleanup:
			p.CleanupSkipped = append(p.CleanupSkipped, CleanupSkip{Entity: t, Reason: "source returned no records"})
			log.Warn("cleanup skipped, source table empty", zap.String("entity", string(t)))
		default:
			p.Deletes = append(p.Deletes, PlanCleanup(t, externalIDs(list)))
		}
	}

	log.Info("plan built",
		zap.Int("updates", len(p.Updates)),
		zap.Int("inserts", len(p.Inserts)),
		zap.Int("links", len(p.Links)),
		zap.Int("deletes", len(p.Deletes)),
		zap.Int("skipped", len(p.Skipped)),
	)
	return p
}

func entities[T model.Entity](in []T) []model.Entity {
	out := make([]model.Entity, len(in))
	for i, e := range in {
		out[i] = e
	}
	return out
}

func externalIDs(list []model.Entity) []string {
	ids := make([]string, 0, len(list))
	for _, e := range list {
		ids = append(ids, e.ExternalID())
	}
	sort.Strings(ids)
	return ids
}

// PlanUpdate links the oldest unlinked row matching any key to the record
// and overwrites its fields. Rows already linked to any record are never
// touched, and nothing happens if some row already carries this record id.
func PlanUpdate(e model.Entity, keys model.MatchKeySet) Statement {
	t := e.Type()
	table := t.Table()
	a := &args{}

	var sets []string
	for _, c := range e.Columns() {
		sets = append(sets, fmt.Sprintf("%s = %s", c.Name, a.add(c.Value)))
	}
	idParam := a.add(e.ExternalID())
	sets = append(sets, "airtable_id = "+idParam, "updated_at = now()")
	match := matchPredicate(t, keys, a)

	var b strings.Builder
	fmt.Fprintf(&b, "UPDATE %s SET\n  %s\n", table, strings.Join(sets, ",\n  "))
	fmt.Fprintf(&b, "WHERE id = (\n  SELECT id FROM %s\n  WHERE airtable_id IS NULL AND (%s)\n  ORDER BY created_at, id\n  LIMIT 1\n)\n", table, match)
	fmt.Fprintf(&b, "AND NOT EXISTS (SELECT 1 FROM %s WHERE airtable_id = %s)", table, idParam)

	return Statement{
		Kind:       KindUpdate,
		Entity:     t,
		ExternalID: e.ExternalID(),
		Comment:    fmt.Sprintf("Update %s %q (%s) if an unlinked row matches", t, e.Identity(), e.ExternalID()),
		SQL:        b.String(),
		Args:       a.vals,
	}
}

// PlanInsert inserts the record unless any row, linked or not, already
// carries its id or matches any key.
func PlanInsert(e model.Entity, keys model.MatchKeySet) Statement {
	t := e.Type()
	table := t.Table()
	a := &args{}

	cols := e.Columns()
	names := make([]string, 0, len(cols)+2)
	vals := make([]string, 0, len(cols)+2)
	for _, c := range cols {
		names = append(names, c.Name)
		vals = append(vals, a.add(c.Value))
	}
	idParam := a.add(e.ExternalID())
	names = append(names, "airtable_id", "updated_at")
	vals = append(vals, idParam, "now()")
	match := matchPredicate(t, keys, a)

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s)\n", table, strings.Join(names, ", "))
	fmt.Fprintf(&b, "SELECT %s\n", strings.Join(vals, ", "))
	fmt.Fprintf(&b, "WHERE NOT EXISTS (\n  SELECT 1 FROM %s\n  WHERE airtable_id = %s OR %s\n)", table, idParam, match)

	return Statement{
		Kind:       KindInsert,
		Entity:     t,
		ExternalID: e.ExternalID(),
		Comment:    fmt.Sprintf("Insert %s %q (%s) if no row matches", t, e.Identity(), e.ExternalID()),
		SQL:        b.String(),
		Args:       a.vals,
	}
}

// PlanLink points people or jobs at their company row through the
// company's Airtable id.
func PlanLink(t model.EntityType) Statement {
	table := t.Table()
	sql := fmt.Sprintf("UPDATE %[1]s SET company_id = c.id, updated_at = now()\n"+
		"FROM companies c\n"+
		"WHERE c.airtable_id = %[1]s.company_airtable_id\n"+
		"AND %[1]s.company_id IS DISTINCT FROM c.id", table)
	return Statement{
		Kind:    KindLink,
		Entity:  t,
		Comment: fmt.Sprintf("Link %s to companies by Airtable company id", table),
		SQL:     sql,
	}
}

// matchPredicate ORs the available identity keys. Person: name, LinkedIn,
// email. Company: name, LinkedIn. Job: title, narrowed by company name when
// one is known.
func matchPredicate(t model.EntityType, k model.MatchKeySet, a *args) string {
	if t == model.EntityJob {
		pred := "lower(title) = " + a.add(k.NameLower)
		if k.CompanyLower != "" {
			pred = "(" + pred + " AND lower(company_name) = " + a.add(k.CompanyLower) + ")"
		}
		return pred
	}

	preds := []string{"lower(name) = " + a.add(k.NameLower)}
	if k.LinkedInURL != "" {
		preds = append(preds, "linkedin_url = "+a.add(k.LinkedInURL))
	}
	if t == model.EntityPerson && k.Email != "" {
		preds = append(preds, "email = "+a.add(k.Email))
	}
	return strings.Join(preds, " OR ")
}

func hasCompanyLinks(list []model.Entity) bool {
	for _, e := range list {
		switch v := e.(type) {
		case *model.Person:
			if v.CompanyAirtableID != nil {
				return true
			}
		case *model.Job:
			if v.CompanyAirtableID != nil {
				return true
			}
		}
	}
	return false
}

// findDuplicates groups records of one type that share any match key.
func findDuplicates(t model.EntityType, list []model.Entity) []Duplicate {
	seen := make(map[string][]string)
	var order []string
	for _, e := range list {
		if strings.TrimSpace(e.Identity()) == "" {
			continue
		}
		for _, key := range model.BuildKeys(e).Parts() {
			if _, ok := seen[key]; !ok {
				order = append(order, key)
			}
			seen[key] = append(seen[key], e.ExternalID())
		}
	}

	var out []Duplicate
	for _, key := range order {
		if ids := seen[key]; len(ids) > 1 {
			out = append(out, Duplicate{Entity: t, Key: key, ExternalIDs: ids})
		}
	}
	return out
}
