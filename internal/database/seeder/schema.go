package seeder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"quantprep/internal/database"
)

// Schema maps a table to the columns a seeder writes.
type Schema map[string][]string

// demoSchema is what DemoSeeder writes through the repositories.
var demoSchema = Schema{
	"users":    {"id", "email", "subscription_status", "subscription_plan"},
	"sessions": {"id", "user_id", "started_at", "ended_at", "score", "feedback"},
	"qas":      {"id", "session_id", "question", "answer", "ai_score", "ai_feedback"},
}

// CheckSchema loads the public columns of every table in want with one
// query and fails listing each missing table.column.
func CheckSchema(ctx context.Context, db database.DB, want Schema) error {
	if db == nil {
		return database.ErrNilDB
	}
	if len(want) == 0 {
		return nil
	}

	tables := make([]string, 0, len(want))
	for table := range want {
		tables = append(tables, table)
	}

	rows, err := db.Query(
		ctx,
		`SELECT table_name, column_name FROM information_schema.columns WHERE table_schema = 'public' AND table_name = ANY($1)`,
		tables,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	have := map[string]map[string]bool{}
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return err
		}
		if have[table] == nil {
			have[table] = map[string]bool{}
		}
		have[table][column] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if missing := missingColumns(have, want); len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrSchemaMismatch, strings.Join(missing, ", "))
	}
	return nil
}

var ErrSchemaMismatch = errors.New("schema mismatch")

func missingColumns(have map[string]map[string]bool, want Schema) []string {
	var out []string
	for table, cols := range want {
		for _, col := range cols {
			if !have[table][col] {
				out = append(out, table+"."+col)
			}
		}
	}
	sort.Strings(out)
	return out
}
