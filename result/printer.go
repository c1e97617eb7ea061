package result

import (
	"fmt"
	"io"
)

// PrintReport writes the batch summary and every bucket count to w.
func PrintReport(w io.Writer, rep Report) {
	writef := func(format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

	writef("%d URLs in total were successfully cleaned (%d distinct).\n", rep.Canonical, rep.DistinctCanonical)
	writef("%d URLs were discarded as garbage.\n", rep.Garbage)
	writef("%d errors were produced in the cleaning process.\n", rep.Errors)

	if len(rep.Buckets) == 0 {
		writef("No URLs were discarded.\n")
	} else {
		writef("\nDiscarded URLs by bucket:\n")
		for _, bucket := range rep.Buckets {
			writef("  %-32s %d\n", bucket.Bucket, bucket.Count)
		}
	}
	writef("Processed %d URLs in %s\n", rep.Input, rep.Duration.Round(1_000_000))
}
