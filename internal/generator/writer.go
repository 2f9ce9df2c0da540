package generator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/vanshika/kgharvest/internal/terms"
)

// File names written by WriteDataset.
const (
	TermsFile   = "terms.csv"
	FixtureFile = "fixture.json"
)

// WriteDataset writes terms.csv and fixture.json under dir.
func WriteDataset(dataset Dataset, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	records := make([]*terms.Record, 0, len(dataset.Terms))
	for _, term := range dataset.Terms {
		records = append(records, &terms.Record{Word: term})
	}
	if err := writeCSV(filepath.Join(dir, TermsFile), &records); err != nil {
		return err
	}

	return writeJSON(filepath.Join(dir, FixtureFile), dataset.Fixture)
}

func writeCSV(path string, rows any) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	if err := gocsv.Marshal(rows, file); err != nil {
		return fmt.Errorf("encode csv for %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, data any) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encode json for %s: %w", path, err)
	}
	return nil
}
