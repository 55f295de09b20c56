package plan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/crm-sync/internal/model"
)

func TestLiteral(t *testing.T) {
	name := "O'Brien"
	var nilStr *string
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "NULL"},
		{"string", "Acme", "'Acme'"},
		{"quote doubled", "O'Brien", "'O''Brien'"},
		{"two quotes", "it's Bob's", "'it''s Bob''s'"},
		{"string pointer", &name, "'O''Brien'"},
		{"nil string pointer", nilStr, "NULL"},
		{"true", true, "TRUE"},
		{"false", false, "FALSE"},
		{"int", 42, "42"},
		{"float", 2.5, "2.5"},
		{"time", ts, "'2024-03-01T12:00:00Z'"},
		{"time pointer", &ts, "'2024-03-01T12:00:00Z'"},
		{"array", []string{"rec1", "it's"}, "ARRAY['rec1', 'it''s']"},
		{"empty array", []string{}, "ARRAY[]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Literal(tt.in))
		})
	}
}

func TestRender(t *testing.T) {
	s := Statement{
		SQL:  "UPDATE people SET name = $1::text WHERE airtable_id = $2::text AND x = $10",
		Args: []any{"O'Brien", "rec1"},
	}
	assert.Equal(t, "UPDATE people SET name = 'O''Brien'::text WHERE airtable_id = 'rec1'::text AND x = $10", s.Render())
}

func TestRender_ManyArgs(t *testing.T) {
	a := &args{}
	var ph []string
	for i := 0; i < 12; i++ {
		ph = append(ph, a.add(i))
	}
	s := Statement{SQL: ph[0] + " " + ph[11], Args: a.vals}
	assert.Equal(t, "0::bigint 11::bigint", s.Render())
}

func TestArgs_Casts(t *testing.T) {
	a := &args{}
	assert.Equal(t, "$1::text", a.add("x"))
	assert.Equal(t, "$2::boolean", a.add(true))
	assert.Equal(t, "$3::timestamptz", a.add(time.Now()))
	assert.Equal(t, "$4::text[]", a.add([]string{"a"}))
	var p *string
	assert.Equal(t, "$5::text", a.add(p))
	assert.Equal(t, "$6", a.add(model.StageMessaged))
	assert.Len(t, a.vals, 6)
}

func TestLiteral_Stage(t *testing.T) {
	assert.Equal(t, "'in_queue'", Literal(model.StageInQueue))
}
