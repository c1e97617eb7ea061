package result

import (
	"errors"
	"slices"
	"sync"
	"testing"
)

func TestLedgerCanonicalOutput(t *testing.T) {
	ledger := NewLedger()
	records := []Result{
		NewCanonical("https://t.me/Channel", "t.me/Channel", PlatformTelegram),
		NewCanonical("t.me/channel?start=1", "t.me/channel", PlatformTelegram),
		NewCanonical("www.Example.com/page", "www.Example.com", PlatformGenericWeb),
		NewCanonical("a.example/x", "a.example", PlatformGenericWeb),
	}
	for _, r := range records {
		if err := ledger.Record(r); err != nil {
			t.Fatalf("Record() error: %v", err)
		}
	}

	got := ledger.CanonicalOutput()
	want := []string{"a.example", "example.com", "t.me/channel"}
	if !slices.Equal(got, want) {
		t.Errorf("CanonicalOutput() = %v, want %v", got, want)
	}
}

func TestLedgerRejectsDeferred(t *testing.T) {
	ledger := NewLedger()
	err := ledger.Record(NewDeferred("youtube.com/watch?v=1", "youtube.com/watch?v=1", PlatformYouTubeWatch))
	if err == nil {
		t.Fatal("expected error recording a deferred result")
	}
	if ledger.Len() != 0 {
		t.Errorf("Len() = %d, want 0", ledger.Len())
	}
}

func TestLedgerVerify(t *testing.T) {
	ledger := NewLedger()
	_ = ledger.Record(NewCanonical("t.me/a", "t.me/a", PlatformTelegram))
	_ = ledger.Record(NewGarbage("#go_to_message", PlatformNonURL, ReasonInputNoise))
	_ = ledger.Record(NewError("bitchute.com/video/x", PlatformBitchute, ReasonNetworkFailure, CategoryTimeout, "timeout"))

	if err := ledger.Verify(3); err != nil {
		t.Errorf("Verify(3) error: %v", err)
	}

	err := ledger.Verify(4)
	var consErr *ConservationError
	if !errors.As(err, &consErr) {
		t.Fatalf("Verify(4) error = %v, want *ConservationError", err)
	}
	if consErr.Input != 4 || consErr.Canonical != 1 || consErr.Garbage != 1 || consErr.Errors != 1 {
		t.Errorf("unexpected conservation error fields: %+v", consErr)
	}
}

func TestLedgerReport(t *testing.T) {
	ledger := NewLedger()
	_ = ledger.Record(NewGarbage("instagram.com/p/1", PlatformInstagram, ReasonUnsupportedShape))
	_ = ledger.Record(NewGarbage("instagram.com/p/2", PlatformInstagram, ReasonUnsupportedShape))
	_ = ledger.Record(NewGarbage("mailto:a@b.c", PlatformMail, ReasonInputNoise))
	_ = ledger.Record(NewError("rumble.com/v1", PlatformRumble, ReasonNetworkFailure, Category5xx, "status 503"))
	_ = ledger.Record(NewCanonical("t.me/a", "t.me/a", PlatformTelegram))

	rep := ledger.Report()
	if rep.Canonical != 1 || rep.Garbage != 3 || rep.Errors != 1 {
		t.Errorf("unexpected totals: %+v", rep)
	}

	want := []BucketCount{
		{Bucket: "instagram/unsupported_shape", Count: 2},
		{Bucket: "mail/input_noise", Count: 1},
		{Bucket: "rumble/error", Count: 1},
	}
	if !slices.Equal(rep.Buckets, want) {
		t.Errorf("Buckets = %v, want %v", rep.Buckets, want)
	}

	bucket := ledger.Bucket(PlatformInstagram, ReasonUnsupportedShape)
	if !slices.Equal(bucket, []string{"instagram.com/p/1", "instagram.com/p/2"}) {
		t.Errorf("Bucket() = %v", bucket)
	}
	if len(ledger.Errors()) != 1 || len(ledger.Garbage()) != 3 {
		t.Errorf("derived views disagree with report")
	}
}

func TestLedgerConcurrentRecord(t *testing.T) {
	ledger := NewLedger()
	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				_ = ledger.Record(NewGarbage("css", PlatformNonURL, ReasonInputNoise))
				return
			}
			_ = ledger.Record(NewCanonical("example.com", "example.com", PlatformGenericWeb))
		}()
	}
	wg.Wait()

	if err := ledger.Verify(100); err != nil {
		t.Errorf("Verify(100) error: %v", err)
	}
}
