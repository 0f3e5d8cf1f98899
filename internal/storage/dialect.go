package storage

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Dialect captures the SQL differences between supported engines
type Dialect interface {
	// Name returns the driver name the dialect belongs to
	Name() string
	// Rebind rewrites ? placeholders into the engine's native form
	Rebind(query string) string
	// Median renders the continuous 50th percentile of expr as a double
	Median(expr string) string
}

// DialectFor returns the dialect registered for a driver name
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case DriverDuckDB:
		return duckDialect{}, nil
	case DriverPostgres, "pgx":
		return postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

type duckDialect struct{}

func (duckDialect) Name() string { return DriverDuckDB }

func (duckDialect) Rebind(query string) string { return query }

func (duckDialect) Median(expr string) string {
	return fmt.Sprintf("CAST(quantile_cont(%s, 0.5) AS DOUBLE)", expr)
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return DriverPostgres }

// Rebind numbers placeholders as $1, $2... Generated SQL carries no string
// literals, so every ? is a placeholder.
func (postgresDialect) Rebind(query string) string {
	return sqlx.Rebind(sqlx.DOLLAR, query)
}

func (postgresDialect) Median(expr string) string {
	return fmt.Sprintf("CAST(percentile_cont(0.5) WITHIN GROUP (ORDER BY %s) AS DOUBLE PRECISION)", expr)
}
