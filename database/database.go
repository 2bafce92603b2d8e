package database

import (
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

const alertsTable = "alerts"

// SelectAlertIDsOlderThan returns the ids of alerts whose timestamp is before cutoff.
func SelectAlertIDsOlderThan(db *sql.DB, cutoff time.Time) ([]string, error) {
	queryBuilder := psql.Select("id").
		From(alertsTable).
		Where(sq.Lt{"timestamp": cutoff.UTC()})

	return queryIDs(db, queryBuilder, "SelectAlertIDsOlderThan")
}

// SelectAlertIDsBeyond returns the ids of every alert after the newest keep
// entries, using the same ordering as the read API.
func SelectAlertIDsBeyond(db *sql.DB, keep int) ([]string, error) {
	if keep < 0 {
		keep = 0
	}
	// sqlite only accepts OFFSET together with LIMIT; -1 means no limit
	queryBuilder := psql.Select("id").
		From(alertsTable).
		OrderBy("timestamp DESC", "created_at DESC").
		Suffix("LIMIT -1 OFFSET ?", keep)

	return queryIDs(db, queryBuilder, "SelectAlertIDsBeyond")
}

// DeleteAlertsByID removes the given alerts and returns the number of rows deleted.
func DeleteAlertsByID(db *sql.DB, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	queryBuilder := psql.Delete(alertsTable).Where(sq.Eq{"id": ids})

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build SQL query for DeleteAlertsByID: %w", err)
	}

	res, err := db.Exec(sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete %d alert(s): %w", len(ids), err)
	}
	return res.RowsAffected()
}

func queryIDs(db *sql.DB, queryBuilder sq.SelectBuilder, op string) ([]string, error) {
	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL query for %s: %w", op, err)
	}

	rows, err := db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute %s: %w", op, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan alert id in %s: %w", op, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating rows in %s: %w", op, err)
	}
	return ids, nil
}
