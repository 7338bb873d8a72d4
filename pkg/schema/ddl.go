package schema

import (
	"fmt"
	"strings"

	"github.com/cuemby/corestate/pkg/types"
)

// Validate rejects a schema that would produce ambiguous or useless
// DDL: nameless tables, nameless columns, or a non-virtual table with
// no columns at all.
func Validate(s types.Schema) error {
	if len(s.Tables) == 0 {
		return &types.ValidationError{Subject: "schema", Reason: "must declare at least one table"}
	}
	seen := make(map[string]bool, len(s.Tables))
	for _, t := range s.Tables {
		if strings.TrimSpace(t.Name) == "" {
			return &types.ValidationError{Subject: "table", Reason: "name must not be empty"}
		}
		if seen[t.Name] {
			return &types.ValidationError{Subject: t.Name, Reason: "table declared more than once"}
		}
		seen[t.Name] = true

		if t.Virtual != "" {
			continue
		}
		if len(t.Columns) == 0 {
			return &types.ValidationError{Subject: t.Name, Reason: "must declare at least one column"}
		}
		for _, c := range t.Columns {
			if strings.TrimSpace(c.Name) == "" {
				return &types.ValidationError{Subject: t.Name, Reason: "column name must not be empty"}
			}
			if strings.TrimSpace(c.ColType) == "" {
				return &types.ValidationError{Subject: t.Name + "." + c.Name, Reason: "column type must not be empty"}
			}
		}
	}
	return nil
}

// ddlStatements renders s into the CREATE TABLE / CREATE VIRTUAL TABLE
// / CREATE INDEX statements needed to bring it into existence. Every
// statement is idempotent (IF NOT EXISTS) since EnsureInitialized may
// run against a database a prior process already initialized.
func ddlStatements(s types.Schema) []string {
	var stmts []string
	for _, t := range s.Tables {
		if t.Virtual != "" {
			stmts = append(stmts, fmt.Sprintf(
				"CREATE VIRTUAL TABLE IF NOT EXISTS %s USING %s", t.Name, t.Virtual))
			continue
		}

		cols := make([]string, 0, len(t.Columns))
		var pk []string
		for _, c := range t.Columns {
			def := c.Name + " " + c.ColType
			if c.NotNull {
				def += " NOT NULL"
			}
			cols = append(cols, def)
			if c.PrimaryKey {
				pk = append(pk, c.Name)
			}
		}
		if len(pk) > 0 {
			cols = append(cols, "PRIMARY KEY ("+strings.Join(pk, ", ")+")")
		}
		stmts = append(stmts, fmt.Sprintf(
			"CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", t.Name, strings.Join(cols, ",\n  ")))

		for _, idx := range t.Indexes {
			name := "idx_" + t.Name + "_" + strings.Join(idx, "_")
			stmts = append(stmts, fmt.Sprintf(
				"CREATE INDEX IF NOT EXISTS %s ON %s (%s)", name, t.Name, strings.Join(idx, ", ")))
		}
	}
	return stmts
}
