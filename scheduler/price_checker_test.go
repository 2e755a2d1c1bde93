package scheduler

import (
	"context"
	"testing"

	"pricewatch/models"
)

func TestPriceCheckerRunNow(t *testing.T) {
	url := "https://inkhouse.pl/tusz"
	src := &fakeSource{snapshots: map[string]models.PriceSnapshot{url: observedAt("40.00")}}
	n := &recordingNotifier{}
	p, _ := newTestPipeline(t, src, n, PipelineOptions{Workers: 1, PerHostLimit: 1}, tracked("a", url, "50.00"))

	pc := NewPriceChecker(p, "0 0 */12 * * *", false)
	if _, ok := pc.LastSummary(); ok {
		t.Fatal("expected no summary before the first run")
	}

	summary, err := pc.RunNow(context.Background())
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if summary.Drops != 1 || len(n.alerts) != 1 {
		t.Errorf("unexpected summary %+v", summary)
	}
	if last, ok := pc.LastSummary(); !ok || last.Drops != 1 {
		t.Errorf("last summary not recorded: %+v", last)
	}
}

func TestPriceCheckerStartStop(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeSource{}, &recordingNotifier{}, PipelineOptions{})

	pc := NewPriceChecker(p, "0 0 */12 * * *", false)
	if err := pc.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	pc.Stop()
}

func TestPriceCheckerRejectsBadSchedule(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeSource{}, &recordingNotifier{}, PipelineOptions{})

	pc := NewPriceChecker(p, "every now and then", false)
	if err := pc.Start(); err == nil {
		t.Error("expected a schedule parse error")
	}
}
