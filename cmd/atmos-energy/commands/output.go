package commands

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"atmosenergy/lib/scrapers/atmos"

	"github.com/jedib0t/go-pretty/v6/table"
)

const timestampLayout = "2006-01-02T15:04:05"

func printTable(usage []atmos.Reading) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Timestamp", "Value"})
	for _, r := range usage {
		t.AppendRow(table.Row{r.Time.Format(timestampLayout), r.Value})
	}
	t.Render()
}

func writeCsv(usage []atmos.Reading, path string) error {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	err = writer.Write([]string{"timestamp", "value"})
	if err != nil {
		return err
	}
	for _, r := range usage {
		err = writer.Write([]string{r.Time.Format(timestampLayout), r.Value})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
