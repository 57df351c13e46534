package atmos

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func loadFixture(t testing.TB) []byte {
	data, err := os.ReadFile(filepath.Join("testdata", "daily_usage.xls"))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

// the fixture holds a header plus 29 days of July 2025, see
// testdata/gen_fixture.py
func fixtureReadings(loc *time.Location) []Reading {
	var out []Reading
	for i := 0; i < 29; i++ {
		out = append(out, Reading{
			Time:  time.Date(2025, time.July, i+1, 0, 0, 0, 0, loc),
			Value: fmt.Sprintf("%.1f", 1.0+0.5*float64(i)),
		})
	}
	return out
}

var timeComparer = cmp.Comparer(func(a, b time.Time) bool {
	return a.Equal(b)
})

func TestDecodeUsageWorkbook(t *testing.T) {
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatal(err)
	}

	usage, err := DecodeUsageWorkbook(loadFixture(t), loc)
	require.NoError(t, err)
	require.Len(t, usage, 29)

	for i := 1; i < len(usage); i++ {
		require.True(
			t, usage[i].Time.After(usage[i-1].Time),
			"timestamps should be strictly increasing",
		)
	}

	if diff := cmp.Diff(fixtureReadings(loc), usage, timeComparer); diff != "" {
		t.Fatalf("usage mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeInvalidWorkbook(t *testing.T) {
	testCases := []struct {
		name string
		raw  []byte
	}{
		{name: "empty", raw: []byte{}},
		// the modern zip-based format must fail, not degrade
		{name: "xlsx", raw: []byte("PK\x03\x04modern workbook bytes")},
		{name: "html", raw: []byte("<html><body>session expired</body></html>")},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			usage, err := DecodeUsageWorkbook(test.raw, time.UTC)
			require.ErrorIs(t, err, ErrWorkbookDecode)
			require.Empty(t, usage)
		})
	}
}
