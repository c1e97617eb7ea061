package result

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestPrintReport_NoGarbage(t *testing.T) {
	var buf bytes.Buffer
	rep := Report{Input: 10, Canonical: 10, DistinctCanonical: 7, Duration: time.Second}

	PrintReport(&buf, rep)

	got := buf.String()
	want := "10 URLs in total were successfully cleaned (7 distinct).\n" +
		"0 URLs were discarded as garbage.\n" +
		"0 errors were produced in the cleaning process.\n" +
		"No URLs were discarded.\n" +
		"Processed 10 URLs in 1s\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPrintReport_WithBuckets(t *testing.T) {
	var buf bytes.Buffer
	rep := Report{
		Input:     5,
		Canonical: 2,
		Garbage:   2,
		Errors:    1,
		Buckets: []BucketCount{
			{Bucket: "instagram/unsupported_shape", Count: 2},
			{Bucket: "vk/error", Count: 1},
		},
	}

	PrintReport(&buf, rep)

	got := buf.String()
	for _, want := range []string{
		"Discarded URLs by bucket:",
		"instagram/unsupported_shape",
		"vk/error",
		"1 errors were produced",
		"Processed 5 URLs",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}
