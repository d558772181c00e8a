package pricing

import (
	"math"
	"testing"

	"github.com/bitfantasy/nimo-crm/internal/crm/entity"
)

func testCatalog() map[string]entity.Service {
	return map[string]entity.Service{
		"svc-a": {ID: "svc-a", Name: "实施服务A", BaseCost: 100000},
		"svc-b": {ID: "svc-b", Name: "实施服务B", BaseCost: 50000},
	}
}

func TestExpectedPrice(t *testing.T) {
	lines := []entity.OpportunityService{
		{ServiceID: "svc-a", Quantity: 3},
	}
	res := ExpectedPrice(lines, testCatalog())
	if res.Amount != 300000 {
		t.Fatalf("expected 300000, got %v", res.Amount)
	}
	if res.Incomplete {
		t.Fatalf("expected complete result")
	}
	if res.ResolvedLines != 1 || res.TotalLines != 1 {
		t.Fatalf("unexpected line counts: %+v", res)
	}
}

func TestExpectedPriceUnresolvedService(t *testing.T) {
	lines := []entity.OpportunityService{
		{ServiceID: "svc-a", Quantity: 2},
		{ServiceID: "svc-missing", Quantity: 5},
	}
	res := ExpectedPrice(lines, testCatalog())
	if res.Amount != 200000 {
		t.Fatalf("expected partial sum 200000, got %v", res.Amount)
	}
	if !res.Incomplete {
		t.Fatalf("expected incomplete flag for unresolved service")
	}
	if res.ResolvedLines != 1 || res.TotalLines != 2 {
		t.Fatalf("unexpected line counts: %+v", res)
	}
}

func TestExpectedPriceEmptyLines(t *testing.T) {
	res := ExpectedPrice(nil, testCatalog())
	if res.Amount != 0 || res.Incomplete {
		t.Fatalf("unexpected result for empty lines: %+v", res)
	}
}

func TestBounds(t *testing.T) {
	b := Bounds(100000, DefaultPolicy)
	if b.Min != 120000 {
		t.Fatalf("expected min 120000, got %v", b.Min)
	}
	if b.Suggested != 140000 {
		t.Fatalf("expected suggested 140000, got %v", b.Suggested)
	}
}

func TestBoundsConfigurablePolicy(t *testing.T) {
	b := Bounds(100000, Policy{MinMarkup: 1.1, SuggestedMarkup: 1.5})
	if b.Min != 110000.00000000001 && b.Min != 110000 {
		t.Fatalf("expected min ~110000, got %v", b.Min)
	}
	if b.Suggested != 150000 {
		t.Fatalf("expected suggested 150000, got %v", b.Suggested)
	}
}

func TestMargin(t *testing.T) {
	cases := []struct {
		name     string
		sell     float64
		cost     float64
		expected float64
	}{
		{"normal", 140000, 100000, (140000.0 - 100000.0) / 140000.0 * 100},
		{"zero sell", 0, 100000, 0},
		{"negative sell", -1, 100000, 0},
		{"zero cost", 100000, 0, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Margin(tc.sell, tc.cost)
			if math.IsNaN(got) || math.IsInf(got, 0) {
				t.Fatalf("margin must be finite, got %v", got)
			}
			if math.Abs(got-tc.expected) > 1e-9 {
				t.Fatalf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestQuoteTotals(t *testing.T) {
	lines := []QuoteLine{
		{Quantity: 2, UnitPrice: 140000, BaseCost: 100000},
		{Quantity: 1, UnitPrice: 60000, BaseCost: 50000},
	}
	res := QuoteTotals(lines)
	if res.TotalRevenue != 340000 {
		t.Fatalf("expected revenue 340000, got %v", res.TotalRevenue)
	}
	if res.TotalCost != 250000 {
		t.Fatalf("expected cost 250000, got %v", res.TotalCost)
	}
	want := (340000.0 - 250000.0) / 340000.0 * 100
	if math.Abs(res.MarginPct-want) > 1e-9 {
		t.Fatalf("expected margin %v, got %v", want, res.MarginPct)
	}
}

func TestQuoteTotalsZeroRevenue(t *testing.T) {
	res := QuoteTotals([]QuoteLine{{Quantity: 1, UnitPrice: 0, BaseCost: 100}})
	if res.MarginPct != 0 {
		t.Fatalf("expected 0 margin for zero revenue, got %v", res.MarginPct)
	}
}
