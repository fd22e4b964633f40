package prpo

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestDelimitedSource(t *testing.T) {
	input := "\ufeffPURCHASE_REQUISITION_NBR\tPURCH_REQ_LINE_NBR \tQUANTITY\n" +
		"P100\t1\t1,200\n" +
		"\n" +
		"P100\t2\n"
	src := NewDelimitedSource(strings.NewReader(input))

	header, err := src.Header()
	if err != nil {
		t.Fatalf("Header: %v", err)
	}
	if header[0] != "PURCHASE_REQUISITION_NBR" || header[1] != "PURCH_REQ_LINE_NBR" {
		t.Fatalf("header not trimmed: %q", header)
	}

	row, err := src.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if row.Get("QUANTITY") != "1,200" {
		t.Fatalf("QUANTITY = %q", row.Get("QUANTITY"))
	}

	row, err = src.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if row.Get("PURCH_REQ_LINE_NBR") != "2" || row.Get("QUANTITY") != "" {
		t.Fatalf("short row = %v", row)
	}

	if _, err := src.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestDelimitedSourceEmpty(t *testing.T) {
	for _, input := range []string{"", "\t\t\n"} {
		_, err := NewDelimitedSource(strings.NewReader(input)).Header()
		if !errors.Is(err, ErrEmptyBatch) {
			t.Fatalf("Header(%q) = %v, want ErrEmptyBatch", input, err)
		}
	}
}

func TestDiagnosticsDescriptionTruncates(t *testing.T) {
	d := &Diagnostics{}
	long := strings.Repeat("x", DiagnosticLimit)
	d.AddSite(long, "P1-1")

	desc := d.Description()
	if !strings.HasPrefix(desc, "SAP Site Code not found in gh_sites:\n") {
		t.Fatalf("unexpected prefix %q", desc[:40])
	}
	if !strings.HasSuffix(desc, "\naq_id not found in gh_bom_equipment:\n") {
		t.Fatalf("unexpected suffix")
	}
	if len(desc) != len("SAP Site Code not found in gh_sites:\n")+DiagnosticLimit+len("\naq_id not found in gh_bom_equipment:\n") {
		t.Fatalf("site block not truncated, len %d", len(desc))
	}
}
