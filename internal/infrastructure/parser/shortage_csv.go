package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"PharmaWatch/internal/domain"
)

// Column names of the shortage feed export.
const (
	colProductID          = "PZN"
	colRegistration       = "ENR"
	colProcessingNumber   = "Bearbeitungsnummer"
	colInitialNoticeRef   = "Referenzierte Erstmeldung"
	colFirstNoticeDate    = "Datum der Erstmeldung"
	colNoticeKind         = "Meldungsart"
	colStart              = "Beginn"
	colEnd                = "Ende"
	colLastUpdate         = "Datum der letzten Meldung"
	colReasonKind         = "Art des Grundes"
	colProductName        = "Arzneimittlbezeichnung"
	colSubstanceClass     = "Atc Code"
	colActiveSubstances   = "Wirkstoffe"
	colHospitalRelevant   = "Krankenhausrelevant"
	colMarketingHolder    = "Zulassungsinhaber"
	colReason             = "Grund"
	colReasonRemark       = "Anm. zum Grund"
	colAlternativeProduct = "Alternativpräparat"
	colProfessionalInfo   = "Info an Fachkreise"
	colDosageForm         = "Darreichungsform"
	colClassification     = "klassifikation"
)

// ShortageColumns lists every column the feed must carry, in export order.
var ShortageColumns = []string{
	colProductID, colRegistration, colProcessingNumber, colInitialNoticeRef,
	colFirstNoticeDate, colNoticeKind, colStart, colEnd, colLastUpdate,
	colReasonKind, colProductName, colSubstanceClass, colActiveSubstances,
	colHospitalRelevant, colMarketingHolder, colReason, colReasonRemark,
	colAlternativeProduct, colProfessionalInfo, colDosageForm, colClassification,
}

// Field validation failures. Each is wrapped in a *FieldError.
var (
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidBool         = errors.New("invalid boolean")
	ErrInvalidNumber       = errors.New("invalid number")
	ErrInvalidRegistration = errors.New("invalid registration number list")
	ErrUnknownValue        = errors.New("unknown value")
	ErrMissingValue        = errors.New("missing value")
)

// FieldError reports which column of a row failed validation.
type FieldError struct {
	Column string
	Value  string
	Kind   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("column %q value %q: %v", e.Column, e.Value, e.Kind)
}

// Unwrap exposes both the generic parse error and the specific kind.
func (e *FieldError) Unwrap() []error {
	return []error{domain.ErrParse, e.Kind}
}

// Header maps column names to record positions.
type Header struct {
	index  map[string]int
	fields int
}

// NewHeader validates that every required column is present.
func NewHeader(record []string) (Header, error) {
	h := Header{index: make(map[string]int, len(record)), fields: len(record)}
	for i, name := range record {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		h.index[name] = i
	}

	var missing []string
	for _, col := range ShortageColumns {
		if _, ok := h.index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return Header{}, fmt.Errorf("%w: header lacks columns %s", domain.ErrParse, strings.Join(missing, ", "))
	}
	return h, nil
}

// ParseShortageRow converts one record into a report; the first invalid field wins.
func ParseShortageRow(h Header, record []string) (domain.ShortageReport, error) {
	if len(record) != h.fields {
		return domain.ShortageReport{}, fmt.Errorf("%w: row has %d fields, header has %d", domain.ErrParse, len(record), h.fields)
	}

	r := rowReader{header: h, record: record}
	report := domain.ShortageReport{
		ProductID:            r.number(colProductID),
		RegistrationNumbers:  r.registrations(colRegistration),
		ProcessingNumber:     r.text(colProcessingNumber),
		InitialNoticeRef:     r.optional(colInitialNoticeRef),
		FirstNoticeDate:      r.date(colFirstNoticeDate),
		NoticeKind:           vocab(&r, colNoticeKind, domain.NoticeKinds),
		Start:                r.date(colStart),
		End:                  r.date(colEnd),
		LastUpdate:           r.date(colLastUpdate),
		ReasonKind:           vocab(&r, colReasonKind, domain.ReasonKinds),
		ProductName:          r.text(colProductName),
		SubstanceClassCode:   r.text(colSubstanceClass),
		ActiveSubstances:     r.text(colActiveSubstances),
		HospitalRelevant:     r.boolean(colHospitalRelevant),
		MarketingHolder:      r.text(colMarketingHolder),
		Reason:               r.text(colReason),
		ReasonRemark:         r.optional(colReasonRemark),
		AlternativeProduct:   r.optional(colAlternativeProduct),
		ProfessionalInfo:     vocab(&r, colProfessionalInfo, domain.ProfessionalInfos),
		DosageForm:           r.text(colDosageForm),
		SupplyClassification: vocab(&r, colClassification, domain.SupplyClassifications),
	}
	if r.err != nil {
		return domain.ShortageReport{}, r.err
	}
	return report, nil
}

// rowReader decodes fields of one record and keeps the first error.
type rowReader struct {
	header Header
	record []string
	err    error
}

func (r *rowReader) raw(col string) string {
	return r.record[r.header.index[col]]
}

func (r *rowReader) fail(col, value string, kind error) {
	if r.err == nil {
		r.err = &FieldError{Column: col, Value: value, Kind: kind}
	}
}

func (r *rowReader) text(col string) string {
	return strings.TrimSpace(r.raw(col))
}

// optional maps blank and "n/a" to nil.
func (r *rowReader) optional(col string) *string {
	v := strings.TrimSpace(r.raw(col))
	if v == "" || strings.EqualFold(v, "n/a") {
		return nil
	}
	return &v
}

func (r *rowReader) date(col string) domain.Date {
	v := r.raw(col)
	d, err := domain.ParseSourceDate(v)
	if err != nil {
		r.fail(col, v, ErrInvalidDate)
	}
	return d
}

func (r *rowReader) boolean(col string) bool {
	v := r.raw(col)
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "ja", "true", "1":
		return true
	case "nein", "false", "0":
		return false
	default:
		r.fail(col, v, ErrInvalidBool)
		return false
	}
}

func (r *rowReader) number(col string) uint64 {
	v := r.raw(col)
	n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
	if err != nil {
		r.fail(col, v, ErrInvalidNumber)
	}
	return n
}

func (r *rowReader) registrations(col string) []uint64 {
	v := r.raw(col)
	parts := strings.Split(v, ",")
	out := make([]uint64, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			r.fail(col, v, ErrInvalidRegistration)
			return nil
		}
		out = append(out, n)
	}
	return out
}

// vocab matches a trimmed field exactly against a fixed vocabulary.
func vocab[T ~string](r *rowReader, col string, allowed []T) T {
	v := strings.TrimSpace(r.raw(col))
	if v == "" {
		r.fail(col, v, ErrMissingValue)
		return ""
	}
	for _, a := range allowed {
		if v == string(a) {
			return a
		}
	}
	r.fail(col, v, ErrUnknownValue)
	return ""
}

// RowError describes a dropped row.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// ParseShortageCSV reads a semicolon-delimited export. Malformed rows are
// reported through onDrop and skipped; only an unusable header fails the batch.
func ParseShortageCSV(r io.Reader, onDrop func(RowError)) ([]domain.ShortageReport, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	headerRecord, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty feed", domain.ErrParse)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %w", domain.ErrParse, err)
	}
	header, err := NewHeader(headerRecord)
	if err != nil {
		return nil, err
	}

	reports := make([]domain.ShortageReport, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, fmt.Errorf("%w: read row: %w", domain.ErrParse, err)
			}
			if onDrop != nil {
				onDrop(RowError{Line: parseErr.Line, Err: fmt.Errorf("%w: %w", domain.ErrParse, err)})
			}
			continue
		}

		report, err := ParseShortageRow(header, record)
		if err != nil {
			if onDrop != nil {
				line, _ := reader.FieldPos(0)
				onDrop(RowError{Line: line, Err: err})
			}
			continue
		}
		reports = append(reports, report)
	}

	return reports, nil
}
