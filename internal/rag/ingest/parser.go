package ingest

import (
	"path/filepath"
	"strings"

	"github.com/akolanti/filebook/internal/domain/commonModels"
	"github.com/gabriel-vasile/mimetype"
)

type ParseReason string

const (
	ReasonEmptyPDF         ParseReason = "EMPTY_PDF"
	ReasonEmptyWord        ParseReason = "EMPTY_WORD"
	ReasonLegacyWord       ParseReason = "LEGACY_WORD"
	ReasonEmptySpreadsheet ParseReason = "EMPTY_SPREADSHEET"
	ReasonEmptyCSV         ParseReason = "EMPTY_CSV"
	ReasonBinaryContent    ParseReason = "BINARY_CONTENT"
	ReasonEmptyText        ParseReason = "EMPTY_TEXT"
	ReasonExtractorFailed  ParseReason = "EXTRACTOR_FAILED"
)

var reasonMessages = map[ParseReason]string{
	ReasonEmptyPDF:         "PDF appears to be empty or contains only images",
	ReasonEmptyWord:        "Word document appears to be empty",
	ReasonLegacyWord:       "Older Word document format (.doc) may not be fully supported. Please convert to .docx",
	ReasonEmptySpreadsheet: "Excel file appears to be empty",
	ReasonEmptyCSV:         "CSV file appears to be empty",
	ReasonBinaryContent:    "File appears to be binary and cannot be parsed as text. Please upload a supported file format.",
	ReasonEmptyText:        "Text file appears to be empty",
	ReasonExtractorFailed:  "Failed to parse file",
}

const legacyWordWarning = "Legacy .doc support is degraded, some text may be missing. Convert to .docx for best results."

// ParseError is the only error ParseFile returns.
type ParseError struct {
	Reason ParseReason
	Format commonModels.DocType
	Err    error
}

func (e *ParseError) Error() string {
	return reasonMessages[e.Reason]
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type ParsedFile struct {
	Text    string
	Format  commonModels.DocType
	Warning string
}

type formatRule struct {
	format     commonModels.DocType
	mediaTypes []string
	extensions []string
}

// checked in order, the first rule matching wins
var formatRules = []formatRule{
	{commonModels.PDF, []string{"application/pdf"}, []string{".pdf"}},
	{commonModels.DOCX, []string{"application/vnd.openxmlformats-officedocument.wordprocessingml.document"}, []string{".docx"}},
	{commonModels.DOC, []string{"application/msword"}, []string{".doc"}},
	{commonModels.XLSX, []string{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"}, []string{".xlsx"}},
	{commonModels.XLS, []string{"application/vnd.ms-excel"}, []string{".xls"}},
	{commonModels.CSV, []string{"text/csv"}, []string{".csv"}},
	// generic text/* types are matched after extensions, so text/plain + .csv still parses as CSV
	{commonModels.TXT, []string{"application/json", "application/xml"},
		[]string{".txt", ".md", ".json", ".xml", ".html", ".css", ".js", ".ts", ".tsx", ".jsx"}},
}

// ParseFile normalizes an uploaded file into plain text. It never panics; every
// failure is reported as a *ParseError.
func ParseFile(data []byte, fileName, mediaType string) (ParsedFile, error) {
	format := DetectFormat(data, fileName, mediaType)
	logger.Debug("parsing file", "fileName", fileName, "mediaType", mediaType, "format", format)

	parsed := ParsedFile{Format: format}
	var (
		text string
		err  error
	)

	switch format {
	case commonModels.PDF:
		text, err = extractPDF(data)
	case commonModels.DOCX:
		text, err = extractDocx(data)
	case commonModels.DOC:
		text, err = extractLegacyDoc(data)
		parsed.Warning = legacyWordWarning
	case commonModels.XLSX, commonModels.XLS:
		text, err = extractSpreadsheet(data)
	case commonModels.CSV:
		text, err = extractCSV(data)
	default:
		text, err = extractPlainText(data)
	}

	if err != nil {
		perr := asParseError(err, format)
		logger.Error("file parsing failed", "fileName", fileName, "format", format, "reason", perr.Reason, "error", err)
		return ParsedFile{Format: format}, perr
	}
	if strings.TrimSpace(text) == "" {
		return ParsedFile{Format: format}, &ParseError{Reason: emptyReason(format), Format: format}
	}

	parsed.Text = text
	return parsed, nil
}

// DetectFormat resolves the declared media type first, the file extension
// second and sniffs the content last.
func DetectFormat(data []byte, fileName, mediaType string) commonModels.DocType {
	mt := normalizeMediaType(mediaType)
	ext := strings.ToLower(filepath.Ext(fileName))

	if f := formatByMediaType(mt); f != commonModels.UNKNOWN {
		return f
	}
	for _, rule := range formatRules {
		for _, e := range rule.extensions {
			if e == ext {
				return rule.format
			}
		}
	}
	if strings.HasPrefix(mt, "text/") {
		return commonModels.TXT
	}

	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if f := formatByMediaType(normalizeMediaType(m.String())); f != commonModels.UNKNOWN {
			return f
		}
	}
	return commonModels.TXT
}

func formatByMediaType(mt string) commonModels.DocType {
	for _, rule := range formatRules {
		for _, t := range rule.mediaTypes {
			if t == mt {
				return rule.format
			}
		}
	}
	return commonModels.UNKNOWN
}

func normalizeMediaType(mediaType string) string {
	mt, _, _ := strings.Cut(mediaType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

func emptyReason(format commonModels.DocType) ParseReason {
	switch format {
	case commonModels.PDF:
		return ReasonEmptyPDF
	case commonModels.DOCX:
		return ReasonEmptyWord
	case commonModels.DOC:
		return ReasonLegacyWord
	case commonModels.XLSX, commonModels.XLS:
		return ReasonEmptySpreadsheet
	case commonModels.CSV:
		return ReasonEmptyCSV
	default:
		return ReasonEmptyText
	}
}

func asParseError(err error, format commonModels.DocType) *ParseError {
	if perr, ok := err.(*ParseError); ok {
		perr.Format = format
		return perr
	}
	return &ParseError{Reason: ReasonExtractorFailed, Format: format, Err: err}
}
