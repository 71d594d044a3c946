package ledger

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Column positions of the sales ledger export.
const (
	ColOrderDate  = 0
	ColRegion     = 4
	ColProvince   = 5
	ColSellAmount = 10
	ColSellMoney  = 11
)

// Kind tells which of a Field's values is meaningful.
type Kind uint8

const (
	KindText Kind = iota
	KindNumber
	KindDate
	KindInvalidDate
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindInvalidDate:
		return "invalid-date"
	default:
		return "text"
	}
}

// Field is one decoded cell. Text always holds the original cell content.
type Field struct {
	Kind Kind
	Text string
	Num  float64
	Time time.Time
}

// Number reports the numeric value of f, if it has one.
func (f Field) Number() (float64, bool) {
	if f.Kind != KindNumber {
		return 0, false
	}
	return f.Num, true
}

func (f Field) String() string {
	return f.Text
}

// Record is one decoded ledger row.
type Record []Field

// Field returns the field at col, or an empty text field when the row is short.
func (r Record) Field(col int) Field {
	if col < 0 || col >= len(r) {
		return Field{}
	}
	return r[col]
}

// Date returns the order date and whether it parsed.
func (r Record) Date() (time.Time, bool) {
	f := r.Field(ColOrderDate)
	if f.Kind != KindDate {
		return time.Time{}, false
	}
	return f.Time, true
}

// String returns the raw text of the field at col.
func (r Record) String(col int) string {
	return r.Field(col).Text
}

// Number returns the numeric value of the field at col.
func (r Record) Number(col int) (float64, bool) {
	return r.Field(col).Number()
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/1/2",
	"2006-1-2",
	"2006-01-02 15:04:05",
	"2006/1/2 15:04:05",
	"2006-01-02T15:04:05",
	"2006/1/2 15:04",
}

// Decoder converts raw ledger text into typed fields.
// The zero value decodes dates in time.Local.
type Decoder struct {
	Location *time.Location
}

// NewDecoder returns a Decoder that interprets zone-less dates in loc.
func NewDecoder(loc *time.Location) Decoder {
	return Decoder{Location: loc}
}

func (d Decoder) location() *time.Location {
	if d.Location == nil {
		return time.Local
	}
	return d.Location
}

// Field decodes text found in column col.
func (d Decoder) Field(text string, col int) Field {
	if col == ColOrderDate {
		return d.date(text)
	}
	if n, ok := parseNumber(text); ok {
		return Field{Kind: KindNumber, Text: text, Num: n}
	}
	return Field{Kind: KindText, Text: text}
}

// Row decodes every cell of raw.
func (d Decoder) Row(raw []string) Record {
	rec := make(Record, len(raw))
	for i, cell := range raw {
		rec[i] = d.Field(cell, i)
	}
	return rec
}

// Rows decodes a slice of raw rows.
func (d Decoder) Rows(raw [][]string) []Record {
	out := make([]Record, 0, len(raw))
	for _, r := range raw {
		out = append(out, d.Row(r))
	}
	return out
}

func (d Decoder) date(text string) Field {
	s := strings.TrimSpace(text)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Field{Kind: KindDate, Text: text, Time: t.In(d.location())}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, d.location()); err == nil {
			return Field{Kind: KindDate, Text: text, Time: t}
		}
	}
	return Field{Kind: KindInvalidDate, Text: text}
}

func parseNumber(text string) (float64, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0, false
	}
	return n, true
}

// DecodeField decodes text from column col using local time for dates.
func DecodeField(text string, col int) Field {
	return Decoder{}.Field(text, col)
}

// DecodeRow decodes raw using local time for dates.
func DecodeRow(raw []string) Record {
	return Decoder{}.Row(raw)
}
