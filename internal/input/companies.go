// Package input loads the company lists a batch run operates on.
package input

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// LoadCompaniesCSV reads company names from the first column of a CSV
// file. A header row naming the column is skipped, as are blank rows and
// duplicates. An empty result is an error.
func LoadCompaniesCSV(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "input: open %s", path)
	}
	defer f.Close()

	companies, err := ReadCompanies(f)
	if err != nil {
		return nil, eris.Wrapf(err, "input: read %s", path)
	}
	return companies, nil
}

// ReadCompanies parses company names from CSV data.
func ReadCompanies(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var companies []string
	seen := make(map[string]bool)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "parse csv")
		}
		if len(record) == 0 {
			continue
		}

		name := strings.TrimSpace(record[0])
		if name == "" {
			continue
		}
		if len(companies) == 0 && isHeader(name) {
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		companies = append(companies, name)
	}

	if len(companies) == 0 {
		return nil, eris.New("no companies found")
	}
	return companies, nil
}

func isHeader(first string) bool {
	switch strings.ToLower(first) {
	case "company", "company name", "company_name", "name":
		return true
	}
	return false
}
