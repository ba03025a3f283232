package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/akolanti/filebook/internal/config"
	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
	"github.com/xuri/excelize/v2"
)

const (
	binaryControlRatio = 0.3
	minScrapedRun      = 16
)

// extractors can panic on malformed input, turn that into an error
func recoverExtraction(format string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%s extractor panicked: %v", format, r)
	}
}

func extractPDF(data []byte) (text string, err error) {
	defer recoverExtraction("pdf", &err)

	f, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var pages []string
	numPages := f.NumPage()
	logger.Debug("extractPDF", "number of pages", numPages)
	for i := 1; i <= numPages; i++ {
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := protectExtract(page)
		if err != nil {
			// a broken page should not cost us the rest of the document
			logger.Warn("Error parsing page content", "page", i, "error", err)
			continue
		}
		if strings.TrimSpace(content) != "" {
			pages = append(pages, content)
		}
	}
	if len(pages) == 0 {
		return "", &ParseError{Reason: ReasonEmptyPDF}
	}
	return strings.Join(pages, "\n\n"), nil
}

func protectExtract(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resChan <- result{err: fmt.Errorf("page extraction panicked: %v", r)}
			}
		}()
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(config.PageExtractionTimeout):
		return "", errors.New("page extraction timed out")
	}
}

func extractDocx(data []byte) (text string, err error) {
	defer recoverExtraction("docx", &err)

	text, err = cat.FromBytes(data)
	if err != nil {
		return "", fmt.Errorf("failed to extract docx: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", &ParseError{Reason: ReasonEmptyWord}
	}
	return text, nil
}

// extractLegacyDoc is best effort. Word 97 binaries are not understood by cat,
// so when it gives up we keep the readable runs of the file.
func extractLegacyDoc(data []byte) (text string, err error) {
	defer recoverExtraction("doc", &err)

	text, err = cat.FromBytes(data)
	if err == nil && strings.TrimSpace(text) != "" && controlRatio(text) <= binaryControlRatio {
		return text, nil
	}
	if err != nil {
		logger.Debug("cat could not read legacy doc, scraping text runs", "error", err)
	}

	text = scrapeTextRuns(data)
	if strings.TrimSpace(text) == "" {
		return "", &ParseError{Reason: ReasonLegacyWord, Err: err}
	}
	return text, nil
}

// scrapeTextRuns pulls printable runs out of a binary, trying both 8-bit and
// UTF-16LE encodings, and keeps whichever recovers more text.
func scrapeTextRuns(data []byte) string {
	ascii := collectRuns(data, 1)
	wide := collectRuns(data, 2)
	if len(wide) > len(ascii) {
		return wide
	}
	return ascii
}

func collectRuns(data []byte, width int) string {
	var (
		out strings.Builder
		run []byte
	)
	flush := func() {
		if len(run) >= minScrapedRun && bytes.IndexByte(run, ' ') >= 0 {
			if out.Len() > 0 {
				out.WriteByte('\n')
			}
			out.Write(bytes.TrimSpace(run))
		}
		run = run[:0]
	}

	for i := 0; i+width <= len(data); i += width {
		b := data[i]
		if width == 2 && data[i+1] != 0 {
			flush()
			continue
		}
		if (b >= 0x20 && b < 0x7f) || b == '\t' || b == '\r' || b == '\n' {
			run = append(run, b)
			continue
		}
		flush()
	}
	flush()
	return out.String()
}

// extractSpreadsheet renders every sheet as a labelled block of CSV rows.
func extractSpreadsheet(data []byte) (text string, err error) {
	defer recoverExtraction("spreadsheet", &err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logger.Warn("failed closing workbook", "error", cerr)
		}
	}()

	var (
		out      strings.Builder
		nonEmpty int
	)
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}

		out.WriteString("=== Sheet: " + sheet + " ===\n")
		w := csv.NewWriter(&out)
		for _, row := range rows {
			if hasContent(row) {
				nonEmpty++
			}
			if err := w.Write(row); err != nil {
				return "", fmt.Errorf("failed to render sheet %q: %w", sheet, err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return "", fmt.Errorf("failed to render sheet %q: %w", sheet, err)
		}
		out.WriteString("\n")
	}

	if nonEmpty == 0 {
		return "", &ParseError{Reason: ReasonEmptySpreadsheet}
	}
	return out.String(), nil
}

func extractCSV(data []byte) (string, error) {
	raw := decodeText(data)

	r := csv.NewReader(strings.NewReader(raw))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		logger.Warn("csv parsing failed, using raw text", "error", err)
		if strings.TrimSpace(raw) == "" {
			return "", &ParseError{Reason: ReasonEmptyCSV, Err: err}
		}
		return raw, nil
	}

	lines := make([]string, 0, len(records))
	for _, record := range records {
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}
		if !hasContent(record) {
			continue
		}
		lines = append(lines, strings.Join(record, ", "))
	}
	if len(lines) == 0 {
		return "", &ParseError{Reason: ReasonEmptyCSV}
	}
	return strings.Join(lines, "\n"), nil
}

func extractPlainText(data []byte) (string, error) {
	// measured before decoding, which would fold runs of bad bytes into one rune
	if controlRatio(string(data)) > binaryControlRatio {
		return "", &ParseError{Reason: ReasonBinaryContent}
	}
	text := decodeText(data)
	if strings.TrimSpace(text) == "" {
		return "", &ParseError{Reason: ReasonEmptyText}
	}
	return text, nil
}

func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	return strings.ToValidUTF8(string(data), string(utf8.RuneError))
}

// controlRatio is the share of runes that are control characters or
// undecodable bytes. Tab, LF and CR count as text.
func controlRatio(text string) float64 {
	total, bad := 0, 0
	for _, r := range text {
		total++
		switch {
		case r == utf8.RuneError:
			bad++
		case r <= 0x08, r == 0x0b, r == 0x0c, r >= 0x0e && r <= 0x1f:
			bad++
		case r >= 0x7f && r <= 0x9f:
			bad++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(bad) / float64(total)
}

func hasContent(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return true
		}
	}
	return false
}
