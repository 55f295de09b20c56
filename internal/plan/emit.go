package plan

import (
	"fmt"
	"strings"
	"time"

	"github.com/sells-group/crm-sync/internal/model"
)

// Emit renders the plan as a SQL script: a header, then updates, inserts,
// links and deletes, each statement preceded by its comment. Output depends
// only on the plan and title.
func Emit(p *Plan, title string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "-- %s\n", commentSafe(title))
	fmt.Fprintf(&b, "-- Generated: %s\n", p.GeneratedAt.UTC().Format(time.RFC3339))
	if p.RunID != "" {
		fmt.Fprintf(&b, "-- Run: %s\n", commentSafe(p.RunID))
	}
	fmt.Fprintf(&b, "-- SUMMARY: people=%d companies=%d jobs=%d (updates=%d inserts=%d links=%d deletes=%d)\n",
		p.Records[model.EntityPerson],
		p.Records[model.EntityCompany],
		p.Records[model.EntityJob],
		len(p.Updates), len(p.Inserts), len(p.Links), len(p.Deletes),
	)
	for _, s := range p.Skipped {
		fmt.Fprintf(&b, "-- SKIPPED %s %s: %s\n", s.Entity, commentSafe(s.ExternalID), commentSafe(s.Reason))
	}
	for _, d := range p.Duplicates {
		fmt.Fprintf(&b, "-- DUPLICATE %s %s: %s\n", d.Entity, commentSafe(d.Key), commentSafe(strings.Join(d.ExternalIDs, ", ")))
	}

	section(&b, "UPDATES", p.Updates)
	section(&b, "INSERTS", p.Inserts)
	section(&b, "LINKS", p.Links)
	section(&b, "CLEANUP", p.Deletes)
	for _, c := range p.CleanupSkipped {
		fmt.Fprintf(&b, "\n-- Cleanup of %s skipped: %s\n", c.Entity.Table(), commentSafe(c.Reason))
	}

	return b.String()
}

func section(b *strings.Builder, name string, stmts []Statement) {
	if len(stmts) == 0 {
		return
	}
	fmt.Fprintf(b, "\n-- ===== %s =====\n", name)
	for _, s := range stmts {
		fmt.Fprintf(b, "\n-- %s\n%s;\n", commentSafe(s.Comment), s.Render())
	}
}

// commentSafe keeps s on a single "--" comment line.
func commentSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\v', '\f', '\u0085', '\u2028', '\u2029':
			return ' '
		}
		return r
	}, s)
}
