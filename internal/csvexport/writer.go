package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"oceanid/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the review sheet header row.
var columns = []string{
	"Extraction ID",
	"Document ID",
	"Row",
	"Column",
	"Raw Value",
	"Cleaned Value",
	"Confidence",
	"Similarity",
	"Needs Review",
	"Review Reasons",
	"Rule Chain",
	"Decision",
	"Reviewed By",
	"Reviewed At",
}

// NullMarker stands in for an explicit null cleaned value, so it can be told
// apart from an empty string.
const NullMarker = "<null>"

// Writer wraps csv.Writer for exporting extractions as a review sheet.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteExtractions converts a batch of extractions to CSV rows and writes them.
func (w *Writer) WriteExtractions(rows []domain.Extraction) error {
	for i := range rows {
		if err := w.csv.Write(extractionToRow(&rows[i])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

func extractionToRow(e *domain.Extraction) []string {
	row := make([]string, len(columns))
	row[0] = e.ID.String()
	row[1] = e.DocumentID.String()
	row[2] = strconv.Itoa(e.RowIndex)
	row[3] = e.ColumnName
	row[4] = e.RawValue
	row[5] = NullMarker
	if e.CleanedValue != nil {
		row[5] = *e.CleanedValue
	}
	row[6] = formatScore(e.Confidence)
	row[7] = formatScore(e.Similarity)
	row[8] = formatBool(e.NeedsReview)
	row[9] = strings.Join(e.ReviewReasons, "; ")
	row[10] = formatChain(e.RuleChain)
	row[11] = string(e.Decision())
	if e.ReviewedBy != nil {
		row[12] = *e.ReviewedBy
	}
	row[13] = formatTime(e.ReviewedAt)
	return row
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func formatChain(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, " > ")
}

func formatBool(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a source file name for use in Content-Disposition.
// Replaces non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "export"
	}
	return s
}

// BuildFilename returns a sanitized filename for the review sheet of a document.
// Format: {sanitized_file_name}_review_{YYYY-MM-DD}.csv
func BuildFilename(fileName string, now time.Time) string {
	base := strings.TrimSuffix(fileName, filepathExt(fileName))
	return fmt.Sprintf("%s_review_%s.csv", SanitizeFilename(base), now.Format("2006-01-02"))
}

func filepathExt(name string) string {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return name[i:]
	}
	return ""
}
