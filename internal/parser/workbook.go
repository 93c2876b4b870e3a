package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"oceanid/internal/domain"
)

// metadataSheets are skipped when looking for the data sheet of a workbook.
var metadataSheets = map[string]bool{
	"info":     true,
	"metadata": true,
	"about":    true,
	"readme":   true,
	"notes":    true,
}

// WorkbookReader streams rows of the first data sheet of an XLSX workbook.
// Cells arrive already split, so only padding and truncation apply.
type WorkbookReader struct {
	file    *excelize.File
	rows    *excelize.Rows
	sheet   string
	columns []string
	index   int
	line    int
}

// NewWorkbookReader opens the workbook and consumes its header row.
func NewWorkbookReader(r io.Reader) (*WorkbookReader, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	sheet := DataSheet(f.GetSheetList())
	if sheet == "" {
		f.Close()
		return nil, domain.ErrEmptyDocument
	}
	rows, err := f.Rows(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}

	w := &WorkbookReader{file: f, rows: rows, sheet: sheet}
	cells, err := w.nextNonBlank()
	if err != nil {
		w.Close()
		if err == io.EOF {
			return nil, domain.ErrEmptyDocument
		}
		return nil, err
	}
	w.columns = CanonicalHeader(cells)
	return w, nil
}

// DataSheet returns the first sheet that is not a metadata sheet, falling
// back to the last sheet when every sheet looks like metadata.
func DataSheet(sheets []string) string {
	for _, s := range sheets {
		if !metadataSheets[strings.ToLower(strings.TrimSpace(s))] {
			return s
		}
	}
	if len(sheets) == 0 {
		return ""
	}
	return sheets[len(sheets)-1]
}

func (w *WorkbookReader) Sheet() string { return w.sheet }

func (w *WorkbookReader) Columns() []string { return w.columns }

// Delimiter is the separator used when rendering a row as raw text.
func (w *WorkbookReader) Delimiter() rune { return '\t' }

func (w *WorkbookReader) Next() (Record, error) {
	cells, err := w.nextNonBlank()
	if err != nil {
		return Record{}, err
	}
	t := Tokens{
		Fields:    cells,
		Delimiter: w.Delimiter(),
		QuoteEdge: make([]bool, len(cells)),
	}
	rec := Record{
		Index: w.index,
		Line:  w.line,
		Raw:   strings.Join(cells, "\t"),
		Row:   Reconcile(t, len(w.columns)),
	}
	w.index++
	return rec, nil
}

func (w *WorkbookReader) nextNonBlank() ([]string, error) {
	for w.rows.Next() {
		w.line++
		cells, err := w.rows.Columns()
		if err != nil {
			return nil, &LineError{Line: w.line, Err: err}
		}
		blank := true
		for i, c := range cells {
			cells[i] = PrepareLine(c)
			if !isBlankLine(cells[i]) {
				blank = false
			}
		}
		if !blank {
			return cells, nil
		}
	}
	if err := w.rows.Error(); err != nil {
		return nil, &LineError{Line: w.line + 1, Err: err}
	}
	return nil, io.EOF
}

func (w *WorkbookReader) Close() error {
	if w.rows != nil {
		w.rows.Close()
	}
	return w.file.Close()
}
