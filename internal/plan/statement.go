package plan

import (
	"strconv"
	"strings"
	"time"

	"github.com/sells-group/crm-sync/internal/model"
)

// Kind classifies a planned statement.
type Kind string

const (
	KindUpdate Kind = "update"
	KindInsert Kind = "insert"
	KindLink   Kind = "link"
	KindDelete Kind = "delete"
)

// Statement is one parameterized SQL statement of a plan. SQL uses $n
// placeholders bound to Args.
type Statement struct {
	Kind       Kind             `json:"kind"`
	Entity     model.EntityType `json:"entity"`
	ExternalID string           `json:"external_id,omitempty"`
	Comment    string           `json:"comment"`
	SQL        string           `json:"sql"`
	Args       []any            `json:"args"`
}

// Render returns the statement with every placeholder replaced by its
// argument as a SQL literal.
func (s Statement) Render() string {
	var b strings.Builder
	b.Grow(len(s.SQL) + 16*len(s.Args))

	sql := s.SQL
	for i := 0; i < len(sql); i++ {
		if sql[i] != '$' {
			b.WriteByte(sql[i])
			continue
		}
		j := i + 1
		for j < len(sql) && sql[j] >= '0' && sql[j] <= '9' {
			j++
		}
		n, err := strconv.Atoi(sql[i+1 : j])
		if err != nil || n < 1 || n > len(s.Args) {
			b.WriteByte(sql[i])
			continue
		}
		b.WriteString(Literal(s.Args[n-1]))
		i = j - 1
	}
	return b.String()
}

// Literal formats v as a Postgres literal. Single quotes in strings are
// doubled.
func Literal(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case string:
		return quote(t)
	case *string:
		if t == nil {
			return "NULL"
		}
		return quote(*t)
	case model.Stage:
		return quote(string(t))
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return quote(t.UTC().Format(time.RFC3339Nano))
	case *time.Time:
		if t == nil {
			return "NULL"
		}
		return quote(t.UTC().Format(time.RFC3339Nano))
	case []string:
		parts := make([]string, len(t))
		for i, s := range t {
			parts[i] = quote(s)
		}
		return "ARRAY[" + strings.Join(parts, ", ") + "]"
	default:
		return "NULL"
	}
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// pgType returns the cast applied to a bound value so Postgres does not
// have to infer it inside INSERT ... SELECT. Stages are left uncast: the
// target columns are enums and text has no assignment cast to them.
func pgType(v any) string {
	switch v.(type) {
	case model.Stage:
		return ""
	case bool:
		return "boolean"
	case time.Time, *time.Time:
		return "timestamptz"
	case []string:
		return "text[]"
	case int, int64:
		return "bigint"
	case float64:
		return "double precision"
	default:
		return "text"
	}
}

// args accumulates bound parameters and hands out placeholders.
type args struct {
	vals []any
}

func (a *args) add(v any) string {
	a.vals = append(a.vals, v)
	ph := "$" + strconv.Itoa(len(a.vals))
	if t := pgType(v); t != "" {
		ph += "::" + t
	}
	return ph
}
