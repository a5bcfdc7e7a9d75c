package logger

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestScanIDRoundTrip(t *testing.T) {
	ctx := WithScanID(context.Background(), "scan-42")
	if got := ScanID(ctx); got != "scan-42" {
		t.Errorf("expected scan-42, got %q", got)
	}
	if got := ScanID(context.Background()); got != "" {
		t.Errorf("expected empty scan ID on bare context, got %q", got)
	}
}

func TestGenerateScanID(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	id := GenerateScanID("scan", ts)
	if !strings.HasPrefix(id, "scan-") {
		t.Errorf("expected tag prefix, got %q", id)
	}
	if id == GenerateScanID("scan", ts.Add(time.Nanosecond)) {
		t.Error("distinct timestamps must yield distinct IDs")
	}
}
