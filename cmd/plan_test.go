//go:build !integration

package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/crm-sync/internal/apply"
	"github.com/sells-group/crm-sync/internal/model"
	"github.com/sells-group/crm-sync/internal/plan"
	"github.com/sells-group/crm-sync/internal/syncer"
	"github.com/sells-group/crm-sync/pkg/airtable"
)

func TestFormatResult(t *testing.T) {
	res := &syncer.Result{
		RunID:        "run-1",
		ArtifactPath: "plans/plan-run-1.sql",
		Plan: &plan.Plan{
			Records: map[model.EntityType]int{model.EntityPerson: 12, model.EntityCompany: 3},
			Updates: make([]plan.Statement, 15),
			Inserts: make([]plan.Statement, 15),
			Skipped: []plan.Skipped{{Entity: model.EntityPerson, ExternalID: "rec9", Reason: "empty name"}},
		},
		Fetch: map[model.EntityType]*airtable.FetchResult{
			model.EntityPerson:  {Complete: false, Err: errors.New("503")},
			model.EntityCompany: {Complete: true},
		},
	}

	var buf bytes.Buffer
	formatResult(&buf, res)

	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "plans/plan-run-1.sql")
	assert.Regexp(t, `people:\s+12 records \(incomplete\)`, out)
	assert.Regexp(t, `companies:\s+3 records\n`, out)
	assert.Contains(t, out, "updates=15 inserts=15 links=0 deletes=0")
	assert.Regexp(t, `Skipped:\s+1`, out)
	assert.NotContains(t, out, "Applied")
}

func TestFormatResult_Applied(t *testing.T) {
	res := &syncer.Result{
		RunID:  "run-2",
		Plan:   &plan.Plan{},
		Report: &apply.Report{Committed: false, DryRun: true, Total: 7},
	}

	var buf bytes.Buffer
	formatResult(&buf, res)
	assert.Contains(t, buf.String(), "rolled back (dry run), 7 rows affected")
}
