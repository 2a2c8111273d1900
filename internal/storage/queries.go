package storage

import (
	"database/sql"

	"github.com/zheng/gocfg/internal/cfg"
)

// FunctionRow is an indexed function graph header.
type FunctionRow struct {
	ID     int64  `json:"id"`
	Module string `json:"module"`
	Name   string `json:"name"`
	Entry  string `json:"entry"`
}

// BlockRow is one indexed basic block.
type BlockRow struct {
	Label     string `json:"label"`
	StartLine *int   `json:"start_line"`
	EndLine   *int   `json:"end_line"`
	Size      int    `json:"size"`
}

// CallerRow names a call site pointing at an indexed function.
type CallerRow struct {
	Function string `json:"function"`
	Module   string `json:"module"`
	Block    string `json:"block"`
}

// InsertModuleGraph stores one module document: its functions, blocks and
// edges. Call sites, unresolved calls and returns all land in the edges table
// distinguished by kind.
func (db *DB) InsertModuleGraph(mg *cfg.ModuleGraph) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, fg := range mg.Functions {
		res, err := tx.Exec(
			`INSERT INTO functions (module, name, entry) VALUES (?, ?, ?)`,
			mg.Module, fg.Name, fg.Entry,
		)
		if err != nil {
			return err
		}
		fnID, err := res.LastInsertId()
		if err != nil {
			return err
		}

		for label, b := range fg.Blocks {
			if _, err := tx.Exec(
				`INSERT INTO blocks (function_id, label, start_line, end_line, size)
				 VALUES (?, ?, ?, ?, ?)`,
				fnID, label, b.StartLine, b.EndLine, b.Size,
			); err != nil {
				return err
			}
		}

		for _, e := range fg.Edges {
			if _, err := tx.Exec(
				`INSERT INTO edges (function_id, kind, src, dst) VALUES (?, ?, ?, ?)`,
				fnID, e.Type, e.Src, e.Dst,
			); err != nil {
				return err
			}
		}
		for _, c := range fg.Calls {
			if _, err := tx.Exec(
				`INSERT INTO edges (function_id, kind, src, dst) VALUES (?, 'call', ?, ?)`,
				fnID, c.Src, c.Dst,
			); err != nil {
				return err
			}
		}
		for _, label := range fg.UnresolvedCalls {
			if _, err := tx.Exec(
				`INSERT INTO edges (function_id, kind, src, dst) VALUES (?, 'unresolved', ?, NULL)`,
				fnID, label,
			); err != nil {
				return err
			}
		}
		for _, r := range fg.Returns {
			if _, err := tx.Exec(
				`INSERT INTO edges (function_id, kind, src, dst) VALUES (?, ?, ?, NULL)`,
				fnID, r.Type, r.Block,
			); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// GetFunctionByName returns the indexed function with the exact name.
func (db *DB) GetFunctionByName(name string) (*FunctionRow, error) {
	row := db.conn.QueryRow(
		`SELECT id, module, name, entry FROM functions WHERE name = ?`, name,
	)
	fn := &FunctionRow{}
	if err := row.Scan(&fn.ID, &fn.Module, &fn.Name, &fn.Entry); err != nil {
		return nil, err
	}
	return fn, nil
}

// FindFunctionsByPattern returns functions whose name contains the pattern,
// best matches first (exact short-name match, then suffix, then substring).
func (db *DB) FindFunctionsByPattern(pattern string) ([]*FunctionRow, error) {
	rows, err := db.conn.Query(
		`SELECT id, module, name, entry FROM functions
		 WHERE name LIKE ?
		 ORDER BY
			CASE
				WHEN name LIKE '%.' || ? THEN 0
				WHEN name LIKE '%' || ? THEN 1
				ELSE 2
			END,
			length(name) ASC`,
		"%"+pattern+"%", pattern, pattern,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fns []*FunctionRow
	for rows.Next() {
		fn := &FunctionRow{}
		if err := rows.Scan(&fn.ID, &fn.Module, &fn.Name, &fn.Entry); err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	return fns, rows.Err()
}

// GetBlocks returns the blocks of a function ordered by label.
func (db *DB) GetBlocks(functionID int64) ([]*BlockRow, error) {
	rows, err := db.conn.Query(
		`SELECT label, start_line, end_line, size FROM blocks
		 WHERE function_id = ? ORDER BY label`,
		functionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []*BlockRow
	for rows.Next() {
		b := &BlockRow{}
		var start, end sql.NullInt64
		if err := rows.Scan(&b.Label, &start, &end, &b.Size); err != nil {
			return nil, err
		}
		if start.Valid {
			v := int(start.Int64)
			b.StartLine = &v
		}
		if end.Valid {
			v := int(end.Int64)
			b.EndLine = &v
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

// GetCallers returns every call site that targets the named function.
func (db *DB) GetCallers(name string) ([]*CallerRow, error) {
	rows, err := db.conn.Query(
		`SELECT f.name, f.module, e.src FROM edges e
		 JOIN functions f ON f.id = e.function_id
		 WHERE e.kind = 'call' AND e.dst = ?
		 ORDER BY f.name, e.src`,
		name,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var callers []*CallerRow
	for rows.Next() {
		c := &CallerRow{}
		if err := rows.Scan(&c.Function, &c.Module, &c.Block); err != nil {
			return nil, err
		}
		callers = append(callers, c)
	}
	return callers, rows.Err()
}

// GetStats returns the indexed function, block and edge counts.
func (db *DB) GetStats() (funcCount, blockCount, edgeCount int64, err error) {
	if err = db.conn.QueryRow("SELECT COUNT(*) FROM functions").Scan(&funcCount); err != nil {
		return
	}
	if err = db.conn.QueryRow("SELECT COUNT(*) FROM blocks").Scan(&blockCount); err != nil {
		return
	}
	err = db.conn.QueryRow("SELECT COUNT(*) FROM edges").Scan(&edgeCount)
	return
}
