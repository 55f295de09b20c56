package plan

import (
	"fmt"

	"github.com/sells-group/crm-sync/internal/model"
)

// PlanCleanup deletes every linked row of t whose Airtable id is not in
// ids. Rows with a NULL airtable_id were never linked and are kept.
func PlanCleanup(t model.EntityType, ids []string) Statement {
	if ids == nil {
		ids = []string{}
	}
	a := &args{}
	sql := fmt.Sprintf("DELETE FROM %s\nWHERE airtable_id IS NOT NULL\nAND NOT (airtable_id = ANY(%s))", t.Table(), a.add(ids))
	return Statement{
		Kind:    KindDelete,
		Entity:  t,
		Comment: fmt.Sprintf("Delete %s no longer in Airtable (%d ids kept)", t.Table(), len(ids)),
		SQL:     sql,
		Args:    a.vals,
	}
}
