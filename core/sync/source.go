package sync

import (
	"context"
	"database/sql"
	"fmt"

	"ComfyPortal/config"
	"ComfyPortal/logger"
)

// Row is one record of the external employee table. The legacy schema is not
// under our control and column names vary between deployments, so values are
// keyed by column name; NULL columns are absent from the map.
type Row map[string]string

// ExternalSource is the read-only legacy employee table. It is a scoped
// resource: opened at the start of a sync run and closed on every exit path.
type ExternalSource interface {
	FetchAll(ctx context.Context) ([]Row, error)
	Close() error
}

// SourceOpener acquires a connection to the external source.
type SourceOpener func(ctx context.Context) (ExternalSource, error)

// mysqlExternalSource reads the legacy sys_user table over a second MySQL
// connection.
type mysqlExternalSource struct {
	db    *sql.DB
	table string
}

// OpenMySQLSource connects to the external employee database.
func OpenMySQLSource(ctx context.Context, cfg *config.Config) (ExternalSource, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.ExternalDBUser, cfg.ExternalDBPassword,
		cfg.ExternalDBHost, cfg.ExternalDBPort, cfg.ExternalDBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open external database connection: %w", err)
	}

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping external database: %w", err)
	}

	logger.Info("外部数据库连接成功", logger.String("host", cfg.ExternalDBHost), logger.String("table", cfg.ExternalUserTable))
	return &mysqlExternalSource{db: db, table: cfg.ExternalUserTable}, nil
}

// FetchAll bulk-reads every row of the employee table. The legacy source has
// no delta query, so each sync run sees the full table.
func (s *mysqlExternalSource) FetchAll(ctx context.Context) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+s.table)
	if err != nil {
		return nil, fmt.Errorf("failed to query external user table %s: %w", s.table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read external table columns: %w", err)
	}

	var result []Row
	for rows.Next() {
		values := make([]sql.NullString, len(columns))
		scanArgs := make([]interface{}, len(columns))
		for i := range values {
			scanArgs[i] = &values[i]
		}

		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("failed to scan external user row: %w", err)
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			if values[i].Valid {
				row[col] = values[i].String
			}
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating external user rows: %w", err)
	}

	logger.Info("从外部数据库获取用户", logger.Int("count", len(result)))
	return result, nil
}

// Close releases the external connection.
func (s *mysqlExternalSource) Close() error {
	return s.db.Close()
}
