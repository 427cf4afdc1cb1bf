package store

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// dialectors maps the configured database driver to its gorm dialector.
// sqlite backs single-node and test deployments; postgres backs a shared
// user directory served by several instances.
var dialectors = map[string]func(dsn string) gorm.Dialector{
	"sqlite":   sqlite.Open,
	"postgres": postgres.Open,
}

// GetDialector resolves a configured driver name to its gorm dialector.
func GetDialector(driver, dsn string) (gorm.Dialector, error) {
	open, ok := dialectors[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
	return open(dsn), nil
}
