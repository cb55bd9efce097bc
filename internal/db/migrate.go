package db

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed sql/pre_automigrate.sql
var preAutoMigrateSQL string

//go:embed sql/post_automigrate.sql
var postAutoMigrateSQL string

// migrationStep is one schema change. A step with models set runs gorm AutoMigrate
// instead of raw SQL.
type migrationStep struct {
	name   string
	sql    string
	models []any
}

// migrationPlan creates the timeline schema, lets gorm create the run and event
// tables, then adds the indexes gorm tags cannot express.
func migrationPlan() []migrationStep {
	return []migrationStep{
		{name: "timeline schema", sql: preAutoMigrateSQL},
		{name: "run and event tables", models: autoMigrateModels()},
		{name: "timeline indexes", sql: postAutoMigrateSQL},
	}
}

func (p *Pool) autoMigrate(ctx context.Context) error {
	if p == nil || p.gdb == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	for _, step := range migrationPlan() {
		if len(step.models) > 0 {
			if err := p.gdb.WithContext(ctx).AutoMigrate(step.models...); err != nil {
				return fmt.Errorf("migrate %s: %w", step.name, err)
			}
			continue
		}
		statement := strings.TrimSpace(step.sql)
		if statement == "" {
			continue
		}
		if err := p.gdb.WithContext(ctx).Exec(statement).Error; err != nil {
			return fmt.Errorf("migrate %s: %w", step.name, err)
		}
	}
	return nil
}
