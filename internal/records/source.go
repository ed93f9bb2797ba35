// Package records читает исходный табличный файл в упорядоченную
// последовательность записей.
package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mmeshcher/orderload-system/internal/model"
)

// ErrMalformedInput возвращается, если исходный файл структурно некорректен:
// отсутствует строка заголовков или строка данных не разбирается.
var ErrMalformedInput = errors.New("malformed input file")

// Load читает файл и возвращает записи в порядке следования строк.
// Номер записи в результате (с единицы) является её идентичностью для
// контрольной точки и отчётности. Полностью пустые строки пропускаются
// и номер не расходуют.
func Load(path string) ([]model.Record, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return loadXLSX(path)
	}
	return loadCSV(path)
}

func loadCSV(path string) ([]model.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header row", ErrMalformedInput)
		}
		return nil, fmt.Errorf("%w: read header: %v", ErrMalformedInput, err)
	}
	header = normalizeHeader(header)

	var recs []model.Record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read row: %v", ErrMalformedInput, err)
		}

		if rec, ok := buildRecord(header, row); ok {
			recs = append(recs, rec)
		}
	}

	return recs, nil
}

func loadXLSX(path string) ([]model.Record, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open source file: %w", err)
	}
	defer file.Close()

	sheet := file.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrMalformedInput)
	}

	rows, err := file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrMalformedInput, sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: missing header row", ErrMalformedInput)
	}

	header := normalizeHeader(rows[0])

	var recs []model.Record
	for _, row := range rows[1:] {
		// excelize обрезает пустые ячейки в конце строки — дополняем до заголовка.
		if len(row) < len(header) {
			padded := make([]string, len(header))
			copy(padded, row)
			row = padded
		}
		if rec, ok := buildRecord(header, row); ok {
			recs = append(recs, rec)
		}
	}

	return recs, nil
}

func normalizeHeader(header []string) []string {
	res := make([]string, len(header))
	for i, h := range header {
		res[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return res
}

// buildRecord собирает запись из строки. Возвращает false для полностью
// пустой строки.
func buildRecord(header, row []string) (model.Record, bool) {
	rec := make(model.Record, len(header))
	empty := true

	for i, name := range header {
		if name == "" || i >= len(row) {
			continue
		}
		value := strings.TrimSpace(row[i])
		if value != "" {
			empty = false
		}
		rec[name] = value
	}

	if empty {
		return nil, false
	}
	return rec, true
}
