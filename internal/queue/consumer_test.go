package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFormatEvent(t *testing.T) {
	draw, _ := json.Marshal(DrawCompletedEvent{
		RaffleID: "r1", Title: "Moto", WinningNumber: 42, Label: "042",
		Sold: true, WinnerName: "Ana", WinnerContact: "555-0101", DrawnAt: "2025-03-01T00:00:00Z",
	})
	unsold, _ := json.Marshal(DrawCompletedEvent{RaffleID: "r1", Label: "043"})
	rejected, _ := json.Marshal(PaymentEvent{RaffleID: "r1", Label: "007", BuyerName: "Luis"})
	milestone, _ := json.Marshal(SalesMilestoneEvent{RaffleID: "r1", Allocated: 800, Total: 1000, Percent: 80})

	cases := []struct {
		name  string
		queue string
		body  []byte
		want  []string
	}{
		{"draw with winner", DrawCompletedQueue, draw, []string{"Draw completed", "number=042", `"Ana" <555-0101>`}},
		{"draw unsold", DrawCompletedQueue, unsold, []string{"winner=unsold"}},
		{"payment rejected", PaymentRejectedQueue, rejected, []string{"Payment rejected", "number=007"}},
		{"milestone", SalesMilestoneQueue, milestone, []string{"allocated=800/1000", "threshold=80%"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			line, err := formatEvent(tc.queue, tc.body)
			if err != nil {
				t.Fatalf("format: %v", err)
			}
			for _, w := range tc.want {
				if !strings.Contains(line, w) {
					t.Errorf("line %q missing %q", line, w)
				}
			}
		})
	}

	if _, err := formatEvent("unknown", draw); err == nil {
		t.Fatal("expected error for unknown queue")
	}
	if _, err := formatEvent(DrawCompletedQueue, []byte("{")); err == nil {
		t.Fatal("expected error for malformed body")
	}
}

func TestFileSinkAppends(t *testing.T) {
	dir := t.TempDir()
	sink := &fileSink{path: filepath.Join(dir, "nested", "raffle.log")}
	if err := sink.append("one\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := sink.append("two\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	got, err := os.ReadFile(sink.path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "one\ntwo\n" {
		t.Fatalf("unexpected contents %q", got)
	}
}
