package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/agrobench/agrobench/internal/logging"
)

// Migration is one forward-only schema step
type Migration struct {
	Version     int
	Description string
	Statements  []string
}

// MigrationManager applies schema migrations and records them in schema_migrations
type MigrationManager struct {
	db *DB
}

// NewMigrationManager creates a new migration manager
func NewMigrationManager(db *DB) *MigrationManager {
	return &MigrationManager{db: db}
}

// GetMigrations returns all available migrations in order
func (m *MigrationManager) GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Farm, cropping system and plot tables",
			Statements: []string{
				`CREATE TABLE IF NOT EXISTS farms (
					id BIGINT PRIMARY KEY,
					"name" VARCHAR NOT NULL,
					region VARCHAR,
					department VARCHAR,
					utilized_area_ha DOUBLE PRECISION,
					organic BOOLEAN,
					livestock BOOLEAN,
					workforce DOUBLE PRECISION,
					created_on DATE
				)`,
				`CREATE TABLE IF NOT EXISTS cropping_systems (
					id BIGINT PRIMARY KEY,
					farm_id BIGINT,
					"name" VARCHAR,
					"type" VARCHAR,
					tillage VARCHAR,
					irrigated BOOLEAN
				)`,
				`CREATE TABLE IF NOT EXISTS plots (
					id BIGINT PRIMARY KEY,
					farm_id BIGINT,
					sdc_id BIGINT,
					"name" VARCHAR,
					area_ha DOUBLE PRECISION,
					soil_type VARCHAR,
					drained BOOLEAN,
					organic_matter_pct DOUBLE PRECISION
				)`,
			},
		},
		{
			Version:     2,
			Description: "Rotation, intervention and indicator tables",
			Statements: []string{
				`CREATE TABLE IF NOT EXISTS rotations (
					id BIGINT PRIMARY KEY,
					sdc_id BIGINT,
					"position" INTEGER,
					crop VARCHAR,
					crop_family VARCHAR,
					cover_crop BOOLEAN,
					yield_t_ha DOUBLE PRECISION,
					"year" INTEGER
				)`,
				`CREATE TABLE IF NOT EXISTS interventions (
					id BIGINT PRIMARY KEY,
					plot_id BIGINT,
					rotation_id BIGINT,
					campaign INTEGER,
					"date" DATE,
					category VARCHAR,
					product VARCHAR,
					dose_ha DOUBLE PRECISION,
					unit VARCHAR,
					nitrogen_kg_ha DOUBLE PRECISION,
					tfi DOUBLE PRECISION,
					passes INTEGER,
					fuel_l_ha DOUBLE PRECISION,
					cost_eur_ha DOUBLE PRECISION
				)`,
				`CREATE TABLE IF NOT EXISTS indicators (
					id BIGINT PRIMARY KEY,
					sdc_id BIGINT,
					campaign INTEGER,
					gross_margin_eur_ha DOUBLE PRECISION,
					tfi_total DOUBLE PRECISION,
					nitrogen_total_kg_ha DOUBLE PRECISION,
					work_hours_ha DOUBLE PRECISION,
					ghg_kg_co2e_ha DOUBLE PRECISION,
					yield_index DOUBLE PRECISION
				)`,
			},
		},
		{
			Version:     3,
			Description: "Foreign key lookup indexes",
			Statements: []string{
				`CREATE INDEX IF NOT EXISTS idx_cropping_systems_farm ON cropping_systems(farm_id)`,
				`CREATE INDEX IF NOT EXISTS idx_plots_farm ON plots(farm_id)`,
				`CREATE INDEX IF NOT EXISTS idx_plots_sdc ON plots(sdc_id)`,
				`CREATE INDEX IF NOT EXISTS idx_rotations_sdc ON rotations(sdc_id)`,
				`CREATE INDEX IF NOT EXISTS idx_interventions_plot ON interventions(plot_id)`,
				`CREATE INDEX IF NOT EXISTS idx_indicators_sdc_campaign ON indicators(sdc_id, campaign)`,
			},
		},
	}
}

// InitializeMigrationTable creates the migration tracking table
func (m *MigrationManager) InitializeMigrationTable(ctx context.Context) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		description VARCHAR NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	if _, err := m.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}

	return nil
}

// GetAppliedMigrations returns applied migration versions in ascending order
func (m *MigrationManager) GetAppliedMigrations(ctx context.Context) ([]int, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}

	defer rows.Close()

	var versions []int

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}

		versions = append(versions, version)
	}

	return versions, rows.Err()
}

// ApplyMigration runs one migration and records it, atomically
func (m *MigrationManager) ApplyMigration(ctx context.Context, migration Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() { _ = tx.Rollback() }()

	for _, stmt := range migration.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
		migration.Version, migration.Description)
	if err != nil {
		return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
	}

	return tx.Commit()
}

// MigrateUp applies every migration not yet recorded
func (m *MigrationManager) MigrateUp(ctx context.Context) error {
	if err := m.InitializeMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	migrations := m.GetMigrations()
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	for _, migration := range migrations {
		if done[migration.Version] {
			continue
		}

		if err := m.ApplyMigration(ctx, migration); err != nil {
			return err
		}

		logging.GetLogger().WithField("version", migration.Version).
			Debugf("Applied migration: %s", migration.Description)
	}

	return nil
}

// GetMigrationStatus maps every known version to whether it has been applied
func (m *MigrationManager) GetMigrationStatus(ctx context.Context) (map[int]bool, error) {
	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	status := make(map[int]bool)
	for _, migration := range m.GetMigrations() {
		status[migration.Version] = false
	}

	for _, v := range applied {
		status[v] = true
	}

	return status, nil
}
