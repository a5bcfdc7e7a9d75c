package scheduler

import (
	"context"
	"testing"

	"stockscan/internal/scan"
)

func scanRequest() scan.Request {
	return scan.Request{BuyIndicator: "macd", SellIndicator: "macd"}
}

func TestRegisterRefresh_RequiresRefresher(t *testing.T) {
	s := New(context.Background(), nil, nil)
	if err := s.RegisterRefresh("0 0 6 * * 6"); err == nil {
		t.Fatal("expected an error without a refresher")
	}
}

func TestRegisterScan_BadSpec(t *testing.T) {
	s := New(context.Background(), nil, nil)
	if err := s.RegisterScan("not a cron spec", scanRequest(), nil); err == nil {
		t.Fatal("expected an error for an invalid cron spec")
	}
	if len(s.Cron.Entries()) != 0 {
		t.Errorf("invalid spec must not register a job")
	}
}

func TestRegisterScan_AddsJob(t *testing.T) {
	s := New(context.Background(), nil, nil)
	if err := s.RegisterScan("0 30 9 * * 1-5", scanRequest(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Cron.Entries()) != 1 {
		t.Errorf("expected 1 registered job, got %d", len(s.Cron.Entries()))
	}
}
