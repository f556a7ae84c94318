package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"xirr-service/domain"
)

type fileCashflow struct {
	Amount any `json:"amount"`
	Date   any `json:"date"`
}

// readCashflowFile loads raw records from a .csv file or a JSON array of
// {"amount", "date"} objects. Values are passed through unconverted.
func readCashflowFile(name string) ([]domain.RawRecord, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(name), ".csv") {
		return readCSV(f)
	}
	return readJSON(f)
}

func readJSON(r io.Reader) ([]domain.RawRecord, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var rows []fileCashflow
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode cashflows: %w", err)
	}
	records := make([]domain.RawRecord, len(rows))
	for i, row := range rows {
		records[i] = domain.RawRecord{Amount: row.Amount, Date: row.Date}
	}
	return records, nil
}

// readCSV expects amount,date columns. A first row whose amount column
// reads "amount" is taken as a header.
func readCSV(r io.Reader) ([]domain.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = true

	var records []domain.RawRecord
	for line := 1; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "amount") {
			continue
		}
		records = append(records, domain.RawRecord{
			Amount: strings.TrimSpace(row[0]),
			Date:   strings.TrimSpace(row[1]),
		})
	}
	return records, nil
}
