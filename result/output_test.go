package result

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func sampleLedger(t *testing.T) *Ledger {
	t.Helper()
	ledger := NewLedger()
	records := []Result{
		NewCanonical("https://t.me/channel?start=1", "t.me/channel", PlatformTelegram),
		NewGarbage("instagram.com/p/Cabc123/", PlatformInstagram, ReasonUnsupportedShape),
		NewError("rumble.com/v1-video.html", PlatformRumble, ReasonNetworkFailure, Category5xx, "unexpected status 503"),
	}
	for _, r := range records {
		if err := ledger.Record(r); err != nil {
			t.Fatalf("Record() error: %v", err)
		}
	}
	return ledger
}

func TestWriteLines(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteLines(&buf, []string{"example.com", "t.me/channel"}); err != nil {
		t.Fatalf("WriteLines returned error: %v", err)
	}
	if got := buf.String(); got != "example.com\nt.me/channel\n" {
		t.Errorf("WriteLines output = %q", got)
	}
}

func TestWriteJSON(t *testing.T) {
	rep := sampleLedger(t).Report()

	var buf bytes.Buffer
	if err := WriteJSON(&buf, rep); err != nil {
		t.Fatalf("WriteJSON returned error: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	for _, key := range []string{"input", "canonical", "distinct_canonical", "garbage", "errors", "buckets"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("Expected %q field in JSON output", key)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	ledger := sampleLedger(t)

	var buf bytes.Buffer
	if err := WriteCSV(&buf, ledger.Results()); err != nil {
		t.Fatalf("WriteCSV returned error: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV output: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("Expected 4 records (header + 3 data), got %d", len(records))
	}
	for i, col := range ledgerHeader {
		if records[0][i] != col {
			t.Errorf("Header column %d: expected %q, got %q", i, col, records[0][i])
		}
	}
	if records[2][1] != "instagram" || records[2][3] != "unsupported_shape" {
		t.Errorf("unexpected garbage row: %v", records[2])
	}
	if records[3][4] != "5xx" || records[3][6] != "unexpected status 503" {
		t.Errorf("unexpected error row: %v", records[3])
	}
}

func TestWriteCSV_EmptyWithHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("WriteCSV returned error: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV output: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("Expected 1 record (header only), got %d", len(records))
	}
}

func TestWriteXLSX(t *testing.T) {
	ledger := sampleLedger(t)
	rep := ledger.Report()

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, ledger, rep); err != nil {
		t.Fatalf("WriteXLSX returned error: %v", err)
	}

	book, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error: %v", err)
	}
	defer func() { _ = book.Close() }()

	for _, sheet := range []string{"canonical", "garbage", "errors", "report"} {
		if idx, err := book.GetSheetIndex(sheet); err != nil || idx < 0 {
			t.Errorf("missing sheet %q", sheet)
		}
	}

	rows, err := book.GetRows("garbage")
	if err != nil {
		t.Fatalf("GetRows(garbage) error: %v", err)
	}
	if len(rows) != 2 || rows[1][0] != "instagram.com/p/Cabc123/" {
		t.Errorf("unexpected garbage sheet rows: %v", rows)
	}
}
