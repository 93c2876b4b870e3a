package parser

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"oceanid/internal/domain"
)

// maxLineBytes bounds a single physical line.
const maxLineBytes = 16 * 1024 * 1024

// Record is one data row of a document. Index is the 0-based ordinal of
// the row among non-blank data lines; Line is the 1-based physical line.
type Record struct {
	Index int
	Line  int
	Raw   string
	Row   Row
}

// Source streams the records of a document after its header.
type Source interface {
	Columns() []string
	Delimiter() rune
	// Next returns io.EOF once the document is exhausted.
	Next() (Record, error)
	Close() error
}

// Open selects a reader for the file by extension.
func Open(r io.Reader, fileName, declaredDelimiter string) (Source, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	ft, ok := domain.AllowedExtensions[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFileType, ext)
	}
	if ft == domain.FileTypeXLSX {
		return NewWorkbookReader(r)
	}
	return NewDelimitedReader(r, fileName, declaredDelimiter)
}

// ReadAll drains src.
func ReadAll(src Source) ([]Record, error) {
	var out []Record
	for {
		rec, err := src.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

// DelimitedReader reads CSV/TSV style text one physical line per record.
type DelimitedReader struct {
	sc      *bufio.Scanner
	columns []string
	delim   rune
	index   int
	line    int
}

// NewDelimitedReader consumes the header line of r and prepares to stream
// its data rows.
func NewDelimitedReader(r io.Reader, fileName, declaredDelimiter string) (*DelimitedReader, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	d := &DelimitedReader{sc: sc}
	var header string
	found := false
	for sc.Scan() {
		d.line++
		text := PrepareLine(sc.Text())
		if isBlankLine(text) {
			continue
		}
		header = text
		found = true
		break
	}
	if err := sc.Err(); err != nil {
		return nil, &LineError{Line: d.line + 1, Err: err}
	}
	if !found {
		return nil, domain.ErrEmptyDocument
	}

	delim, err := DetectDelimiter(header, fileName, declaredDelimiter)
	if err != nil {
		return nil, err
	}
	d.delim = delim
	d.columns = CanonicalHeader(Tokenize(header, delim).Fields)
	return d, nil
}

func (d *DelimitedReader) Columns() []string { return d.columns }

func (d *DelimitedReader) Delimiter() rune { return d.delim }

func (d *DelimitedReader) Next() (Record, error) {
	for d.sc.Scan() {
		d.line++
		text := PrepareLine(d.sc.Text())
		if isBlankLine(text) {
			continue
		}
		rec := Record{
			Index: d.index,
			Line:  d.line,
			Raw:   text,
			Row:   Reconcile(Tokenize(text, d.delim), len(d.columns)),
		}
		d.index++
		return rec, nil
	}
	if err := d.sc.Err(); err != nil {
		return Record{}, &LineError{Line: d.line + 1, Err: err}
	}
	return Record{}, io.EOF
}

func (d *DelimitedReader) Close() error { return nil }
