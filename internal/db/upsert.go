package db

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig describes a keyed bulk write.
type UpsertConfig struct {
	Table        string   // target table, optionally schema-qualified
	Columns      []string // column order of every row
	ConflictKeys []string // unique key of the target table
	UpdateCols   []string // columns rewritten on conflict; nil means every non-key column
}

func (c UpsertConfig) validate() error {
	if len(c.Columns) == 0 {
		return eris.New("db: upsert: no columns specified")
	}
	if len(c.ConflictKeys) == 0 {
		return eris.New("db: upsert: no conflict keys specified")
	}
	return nil
}

func (c UpsertConfig) updateColumns() []string {
	if c.UpdateCols != nil {
		return c.UpdateCols
	}
	var cols []string
	for _, col := range c.Columns {
		if !slices.Contains(c.ConflictKeys, col) {
			cols = append(cols, col)
		}
	}
	return cols
}

// stagingTable names the per-transaction temp table.
func (c UpsertConfig) stagingTable() string {
	return "_tmp_upsert_" + strings.ReplaceAll(c.Table, ".", "_")
}

func (c UpsertConfig) stagingSQL() string {
	return fmt.Sprintf("CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		pgx.Identifier{c.stagingTable()}.Sanitize(), sanitizeTable(c.Table))
}

func (c UpsertConfig) mergeSQL() string {
	sets := make([]string, 0, len(c.Columns))
	for _, col := range c.updateColumns() {
		id := pgx.Identifier{col}.Sanitize()
		sets = append(sets, id+" = EXCLUDED."+id)
	}
	cols := quoteAndJoin(c.Columns)
	action := "DO NOTHING"
	if len(sets) > 0 {
		action = "DO UPDATE SET " + strings.Join(sets, ", ")
	}
	return fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) %s",
		sanitizeTable(c.Table), cols, cols,
		pgx.Identifier{c.stagingTable()}.Sanitize(),
		quoteAndJoin(c.ConflictKeys), action)
}

// BulkUpsert writes rows in one transaction: COPY into a temp table that
// drops on commit, then INSERT ... ON CONFLICT into the target. It returns
// the number of target rows inserted or updated.
//
// Rows must already be unique on the conflict keys; Postgres rejects a
// statement that touches the same target row twice.
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := cfg.validate(); err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, cfg.stagingSQL()); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: create temp table for %s", cfg.Table)
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{cfg.stagingTable()}, cfg.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: COPY into temp table for %s", cfg.Table)
	}
	tag, err := tx.Exec(ctx, cfg.mergeSQL())
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: INSERT ON CONFLICT for %s", cfg.Table)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}
	return tag.RowsAffected(), nil
}

func identifier(table string) pgx.Identifier {
	return pgx.Identifier(strings.SplitN(table, ".", 2))
}

func sanitizeTable(table string) string {
	return identifier(table).Sanitize()
}

func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
