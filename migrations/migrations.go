// Package migrations embeds the SQL schema scripts shared by cmd/migrate
// and the repository tests.
package migrations

import (
	"embed"
	"fmt"
)

//go:embed *.sql
var files embed.FS

// Script returns the named migration for direction "up" or "down"
func Script(name, direction string) (string, error) {
	if direction != "up" && direction != "down" {
		return "", fmt.Errorf("invalid migration direction: %s", direction)
	}
	content, err := files.ReadFile(fmt.Sprintf("%s.%s.sql", name, direction))
	if err != nil {
		return "", fmt.Errorf("failed to read migration %s: %w", name, err)
	}
	return string(content), nil
}

// Up returns the schema creation script
func Up() string {
	s, err := Script("001_create_schema", "up")
	if err != nil {
		panic(err)
	}
	return s
}
