package commands

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"atmosenergy/lib/scrapers/atmos"

	"github.com/stretchr/testify/require"
)

func TestMergeConfig(t *testing.T) {
	file := Config{
		Username: "file-user",
		Password: "file-pass",
		Months:   6,
		Output:   "file.csv",
		Db:       "file.db",
	}

	merged := mergeConfig(Config{}, file)
	require.Equal(t, file, merged)

	flags := Config{
		Username: "flag-user",
		Months:   3,
		Output:   "flag.csv",
	}
	merged = mergeConfig(flags, file)
	require.Equal(t, Config{
		Username: "flag-user",
		Password: "file-pass",
		Months:   3,
		Output:   "flag.csv",
		Db:       "file.db",
	}, merged)
}

func TestWriteCsv(t *testing.T) {
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	usage := []atmos.Reading{
		{Time: time.Date(2025, 7, 1, 0, 0, 0, 0, loc), Value: "1.0"},
		{Time: time.Date(2025, 7, 2, 0, 0, 0, 0, loc), Value: "1.5"},
	}

	path := filepath.Join(t.TempDir(), "nested", "usage.csv")
	err = writeCsv(usage, path)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(
		t,
		"timestamp,value\n2025-07-01T00:00:00,1.0\n2025-07-02T00:00:00,1.5\n",
		string(raw),
	)
}
