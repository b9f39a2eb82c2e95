package db

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestDecodeFallsBackToEmptyDefault(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{name: "missing", data: nil},
		{name: "unparsable", data: []byte("{not json")},
		{name: "null", data: []byte("null")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			points := Points{"stale": decimal.NewFromInt(3)}
			Decode(DocPoints, tt.data, &points)
			if points == nil {
				t.Fatalf("expected non-nil map")
			}
			if len(points) != 0 {
				t.Fatalf("expected empty default, got %v", points)
			}
		})
	}
}

func TestDecodeReadsDocument(t *testing.T) {
	t.Parallel()

	var points Points
	Decode(DocPoints, []byte(`{"m1":"2.5"}`), &points)
	if !points["m1"].Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("unexpected balance: %s", points["m1"])
	}
}

func TestGiverCountsRecord(t *testing.T) {
	t.Parallel()

	g := GiverCounts{}
	g.Record("m1", decimal.RequireFromString("1.5"))
	g.Record("m1", decimal.NewFromInt(2))
	if g.Count("m1") != 2 {
		t.Fatalf("unexpected count: %d", g.Count("m1"))
	}
	if !g.Volume("m1").Equal(decimal.RequireFromString("3.5")) {
		t.Fatalf("unexpected volume: %s", g.Volume("m1"))
	}
}
