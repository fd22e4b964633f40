package prpo

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Row is one batch line keyed by header name.
type Row map[string]string

// Get returns the trimmed value of a column.
func (r Row) Get(col string) string {
	return strings.TrimSpace(r[col])
}

// RowSource yields a header then rows until io.EOF.
type RowSource interface {
	Header() ([]string, error)
	Next() (Row, error)
}

// DelimitedSource reads a delimited text batch with a header line.
type DelimitedSource struct {
	reader *csv.Reader
	header []string
	line   int
}

// NewDelimitedSource reads tab-delimited rows from r.
func NewDelimitedSource(r io.Reader) *DelimitedSource {
	return NewDelimitedSourceWithComma(r, '\t')
}

func NewDelimitedSourceWithComma(r io.Reader, comma rune) *DelimitedSource {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return &DelimitedSource{reader: reader}
}

// Header returns the trimmed header names, or ErrEmptyBatch when there is no header line.
func (s *DelimitedSource) Header() ([]string, error) {
	if s.header != nil {
		return s.header, nil
	}
	record, err := s.reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyBatch
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	s.line = 1
	header := make([]string, len(record))
	empty := true
	for i, name := range record {
		header[i] = strings.Trim(name, " \ufeff")
		if header[i] != "" {
			empty = false
		}
	}
	if empty {
		return nil, ErrEmptyBatch
	}
	s.header = header
	return header, nil
}

// Next returns the next row. Blank lines are skipped by the csv reader.
// Short rows leave the missing columns empty; extra fields are dropped.
func (s *DelimitedSource) Next() (Row, error) {
	if s.header == nil {
		if _, err := s.Header(); err != nil {
			return nil, err
		}
	}
	record, err := s.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read line %d: %w", s.line+1, err)
	}
	s.line++
	row := make(Row, len(s.header))
	for i, name := range s.header {
		if i < len(record) {
			row[name] = record[i]
		} else {
			row[name] = ""
		}
	}
	return row, nil
}

// SliceSource serves rows already in memory.
type SliceSource struct {
	header []string
	rows   []Row
	pos    int
}

func NewSliceSource(header []string, rows ...Row) *SliceSource {
	return &SliceSource{header: header, rows: rows}
}

func (s *SliceSource) Header() ([]string, error) {
	if len(s.header) == 0 {
		return nil, ErrEmptyBatch
	}
	return s.header, nil
}

func (s *SliceSource) Next() (Row, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}
