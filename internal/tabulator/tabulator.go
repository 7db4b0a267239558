/*
Copyright 2025 Statledger Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package tabulator reads uploaded statement files into header and row form
// without interpreting any cell. CSV and XLSX are supported; the first
// non-empty row is the header.
package tabulator

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/statledger/statledger/model"
)

// ReadFile loads the file at path and returns the header row plus the data
// rows beneath it. Row indices are 1-based data positions, stable across the
// pipeline for error reporting.
func ReadFile(path string) ([]string, []model.RawRow, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readCSV(path)
	case ".xlsx", ".xls":
		return readXLSX(path)
	default:
		return nil, nil, fmt.Errorf("unsupported statement format %q", filepath.Ext(path))
	}
}

func readCSV(path string) ([]string, []model.RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening statement file")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrap(err, "reading csv row")
		}
		records = append(records, record)
	}
	return assemble(records)
}

func readXLSX(path string) ([]string, []model.RawRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening workbook")
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading worksheet rows")
	}
	return assemble(records)
}

func assemble(records [][]string) ([]string, []model.RawRow, error) {
	headerIdx := -1
	for i, record := range records {
		if !rowEmpty(record) {
			headerIdx = i
			break
		}
	}
	if headerIdx == -1 {
		return nil, nil, errors.New("statement file has no header row")
	}

	headers := make([]string, len(records[headerIdx]))
	for i, h := range records[headerIdx] {
		headers[i] = strings.TrimSpace(h)
	}

	var rows []model.RawRow
	index := 0
	for _, record := range records[headerIdx+1:] {
		if rowEmpty(record) {
			continue
		}
		index++
		cells := make(map[string]string, len(headers))
		for i, header := range headers {
			if i < len(record) {
				cells[header] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, model.RawRow{Index: index, Headers: headers, Cells: cells})
	}
	return headers, rows, nil
}

func rowEmpty(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
