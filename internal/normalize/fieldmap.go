package normalize

import (
	_ "embed"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/crm-sync/internal/model"
)

//go:embed fieldmap.yaml
var defaultFieldMap []byte

// FieldMap lists, per entity type, the Airtable field names each canonical
// field may arrive under.
type FieldMap struct {
	Person  map[string][]string `yaml:"person"`
	Company map[string][]string `yaml:"company"`
	Job     map[string][]string `yaml:"job"`
}

// DefaultFieldMap returns the embedded field map.
func DefaultFieldMap() *FieldMap {
	fm, err := ParseFieldMap(defaultFieldMap)
	if err != nil {
		panic(eris.Wrap(err, "normalize: embedded field map"))
	}
	return fm
}

// ParseFieldMap decodes a YAML field map.
func ParseFieldMap(data []byte) (*FieldMap, error) {
	var fm FieldMap
	if err := yaml.Unmarshal(data, &fm); err != nil {
		return nil, eris.Wrap(err, "normalize: parse field map")
	}
	return &fm, nil
}

// LoadFieldMap reads a field map file and lays it over the defaults. An
// empty path returns the defaults.
func LoadFieldMap(path string) (*FieldMap, error) {
	fm := DefaultFieldMap()
	if path == "" {
		return fm, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "normalize: read field map %s", path)
	}
	override, err := ParseFieldMap(data)
	if err != nil {
		return nil, err
	}
	if err := override.Validate(); err != nil {
		return nil, err
	}

	for k, v := range override.Person {
		fm.Person[k] = v
	}
	for k, v := range override.Company {
		fm.Company[k] = v
	}
	for k, v := range override.Job {
		fm.Job[k] = v
	}
	return fm, nil
}

// Validate rejects canonical field names the normalizer does not know.
func (fm *FieldMap) Validate() error {
	var unknown []string
	check := func(t model.EntityType, m map[string][]string) {
		known := canonicalFields[t]
		for k := range m {
			if _, ok := known[k]; !ok {
				unknown = append(unknown, string(t)+"."+k)
			}
		}
	}
	check(model.EntityPerson, fm.Person)
	check(model.EntityCompany, fm.Company)
	check(model.EntityJob, fm.Job)

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return eris.Errorf("normalize: unknown canonical fields %v", unknown)
	}
	return nil
}

// Aliases returns the Airtable field names for a canonical field.
func (fm *FieldMap) Aliases(t model.EntityType, field string) []string {
	switch t {
	case model.EntityPerson:
		return fm.Person[field]
	case model.EntityCompany:
		return fm.Company[field]
	case model.EntityJob:
		return fm.Job[field]
	}
	return nil
}

type fieldSet map[string]struct{}

func newFieldSet(names ...string) fieldSet {
	s := make(fieldSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

var canonicalFields = map[model.EntityType]fieldSet{
	model.EntityPerson: newFieldSet("name", "company_role", "employee_location", "linkedin_url", "email",
		"stage", "confidence_level", "lead_source", "automation", "connection_message",
		"follow_up_message", "company", "created_at"),
	model.EntityCompany: newFieldSet("name", "website", "linkedin_url", "head_office", "industry",
		"company_size", "priority", "automation", "lead_score", "created_at"),
	model.EntityJob: newFieldSet("title", "company", "location", "description", "requirements",
		"salary", "status", "date_posted", "created_at"),
}
