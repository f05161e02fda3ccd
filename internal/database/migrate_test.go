package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_LoadMigrations(t *testing.T) {
	migrations, err := loadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	for i, m := range migrations {
		assert.Equal(t, i+1, m.version, "versions are contiguous from 1")
		assert.NotEmpty(t, strings.TrimSpace(m.sql))
	}

	schema := migrations[0].sql
	for _, name := range []string{
		"books_stock_check",
		"students_email_key",
		"students_matriculation_key",
		"loans_student_id_fkey",
		"loans_one_active_per_student_book",
	} {
		assert.Contains(t, schema, name)
	}
}

func Test_Config_DSN(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "lib", Password: "secret", DBName: "library", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=lib password=secret dbname=library sslmode=disable", cfg.DSN())
}
