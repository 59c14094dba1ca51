package database

import (
	"fmt"
	"net/url"
	"strings"
)

// Driver names a supported task store backend
type Driver string

const (
	DriverMongo    Driver = "mongodb"
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// DetectDriver picks the backend from the scheme of a DATABASE_URL
func DetectDriver(rawURL string) (Driver, error) {
	if rawURL == "sqlite::memory:" {
		return DriverSQLite, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid database url: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "mongodb", "mongodb+srv":
		return DriverMongo, nil
	case "postgres", "postgresql":
		return DriverPostgres, nil
	case "sqlite", "sqlite3", "file":
		return DriverSQLite, nil
	case "":
		return "", fmt.Errorf("database url has no scheme")
	default:
		return "", fmt.Errorf("unsupported database scheme %q", u.Scheme)
	}
}
