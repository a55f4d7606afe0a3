// Package export renders record sets as XLSX workbooks for downstream
// reporting.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/customs-pairing/backend/internal/fields"
	"github.com/customs-pairing/backend/internal/models"
	"github.com/customs-pairing/backend/internal/pairing"
)

const sheetName = "Rapor"

// Fixed lead columns before the field catalogue.
var leadColumns = []string{"Beyanname Dosyası", "Navlun Dosyası", "Tarih", "Doğrulandı"}

// Exporter builds workbooks over a field catalogue; column order follows
// the catalogue so every export has the same shape regardless of which
// keys a record happens to carry.
type Exporter struct {
	catalogue *fields.Catalogue
	sorter    *pairing.Sorter
}

func New(cat *fields.Catalogue, locale string) *Exporter {
	return &Exporter{
		catalogue: cat,
		sorter:    pairing.NewSorter(locale),
	}
}

// FileName returns the dated download name for an export.
func (e *Exporter) FileName(now time.Time) string {
	return fmt.Sprintf("Filtrelenmis_Rapor_%s.xlsx", now.Format("02.01.2006"))
}

// Workbook renders the records into an XLSX payload, one row per record
// ordered by filename, the report view's default sort.
func (e *Exporter) Workbook(records []*models.PairRecord) ([]byte, error) {
	records = append([]*models.PairRecord{}, records...)
	e.sorter.SortRecords(records)

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("creating sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	keys := e.catalogue.Keys()
	header := append(append([]string{}, leadColumns...), keys...)
	if err := writeRow(f, 1, header); err != nil {
		return nil, err
	}

	for i, r := range records {
		row := make([]string, 0, len(header))
		row = append(row,
			slotName(r.Declaration),
			slotName(r.Freight),
			r.AnalyzedAt.Format("02.01.2006 15:04"),
			boolCell(r.Verified))
		for _, key := range keys {
			row = append(row, r.Data[key])
		}
		if err := writeRow(f, i+2, row); err != nil {
			return nil, err
		}
	}

	autoFitColumns(f, header, records, keys)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(sheetName, cell, &cells)
}

// autoFitColumns sizes each column to its longest value, clamped so a
// single long cell does not blow up the sheet.
func autoFitColumns(f *excelize.File, header []string, records []*models.PairRecord, keys []string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len([]rune(h))
	}
	for _, r := range records {
		values := []string{slotName(r.Declaration), slotName(r.Freight), "00.00.0000 00:00", boolCell(r.Verified)}
		for _, key := range keys {
			values = append(values, r.Data[key])
		}
		for i, v := range values {
			if n := len([]rune(v)); n > widths[i] {
				widths[i] = n
			}
		}
	}
	for i, w := range widths {
		if w > 60 {
			w = 60
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			continue
		}
		f.SetColWidth(sheetName, col, col, float64(w)+2)
	}
}

func slotName(doc *models.DocumentInfo) string {
	if doc == nil {
		return ""
	}
	return doc.FileName
}

func boolCell(b bool) string {
	if b {
		return "EVET"
	}
	return "HAYIR"
}
