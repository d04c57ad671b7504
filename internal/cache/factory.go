package cache

import (
	"fmt"
	"os"
)

// OpenFromEnv selects a cache implementation using environment variables.
//
//	QIIME2_CACHE_DRIVER: memory|sqlite|postgres (default memory)
//	QIIME2_CACHE_SQLITE_PATH: database path when driver=sqlite
//	QIIME2_CACHE_POSTGRES_DSN: connection string when driver=postgres
func OpenFromEnv() (Store, error) {
	driver := os.Getenv("QIIME2_CACHE_DRIVER")
	if driver == "" {
		driver = "memory"
	}
	switch driver {
	case "memory":
		return NewMemory(), nil
	case "sqlite":
		return NewSQLite(os.Getenv("QIIME2_CACHE_SQLITE_PATH"))
	case "postgres":
		return NewPostgres(os.Getenv("QIIME2_CACHE_POSTGRES_DSN"))
	default:
		return nil, fmt.Errorf("unknown cache driver %s", driver)
	}
}
