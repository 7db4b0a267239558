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

package tabulator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statement.csv")
	content := "Date,Narration,Withdrawal Amt.,Deposit Amt.,Closing Balance\n" +
		"05/01/2025,SALARY CREDIT,,50000.00,50000.00\n" +
		",,,,\n" +
		"06/01/2025,ATM WDL,2000.00,,48000.00\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	headers, rows, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Narration", "Withdrawal Amt.", "Deposit Amt.", "Closing Balance"}, headers)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Index)
	assert.Equal(t, "SALARY CREDIT", rows[0].Cell("Narration"))
	assert.Equal(t, 2, rows[1].Index)
	assert.Equal(t, "2000.00", rows[1].Cell("Withdrawal Amt."))
}

func TestReadCSVLeadingBlankRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statement.csv")
	content := ",,\n" +
		"Date,Description,Amount\n" +
		"2025-01-05,UPI payment,-350.00\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	headers, rows, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Description", "Amount"}, headers)
	require.Len(t, rows, 1)
	assert.Equal(t, "-350.00", rows[0].Cell("Amount"))
}

func TestReadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statement.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Date", "Description", "Amount"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"2025-01-05", "SALARY CREDIT", "50000.00"}))
	require.NoError(t, f.SaveAs(path))

	headers, rows, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Description", "Amount"}, headers)
	require.Len(t, rows, 1)
	assert.Equal(t, "SALARY CREDIT", rows[0].Cell("Description"))
}

func TestReadFileUnsupportedFormat(t *testing.T) {
	_, _, err := ReadFile("statement.pdf")
	assert.Error(t, err)
}

func TestReadFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, []byte(""), 0644))
	_, _, err := ReadFile(path)
	assert.Error(t, err)
}
