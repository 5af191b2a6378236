package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunMigrations_InputValidation(t *testing.T) {
	// Only input validation is covered here; applying migrations needs a live database
	tests := []struct {
		name           string
		databaseURL    string
		migrationsPath string
		expectedError  string
	}{
		{
			name:           "EmptyMigrationsPath",
			databaseURL:    "postgres://test",
			migrationsPath: "",
			expectedError:  "migrations path cannot be empty",
		},
		{
			name:           "EmptyDatabaseURL",
			databaseURL:    "",
			migrationsPath: "file://./migrations",
			expectedError:  "database URL cannot be empty",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := RunMigrations(tc.databaseURL, tc.migrationsPath)
			assert.EqualError(t, err, tc.expectedError)
		})
	}
}
