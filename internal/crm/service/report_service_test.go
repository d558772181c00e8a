package service

import (
	"testing"
	"time"

	"github.com/bitfantasy/nimo-crm/internal/crm/entity"
)

func TestSummarizeStatus(t *testing.T) {
	opps := []entity.Opportunity{
		{Status: entity.OppStatusDraft},
		{Status: entity.OppStatusDraft},
		{Status: entity.OppStatusApproved},
		{Status: entity.OppStatusContractCreated},
	}

	result := SummarizeStatus(opps)
	if len(result) != 3 {
		t.Fatalf("expected 3 status rows, got %d", len(result))
	}
	// 按状态名排序
	if result[0].Status != entity.OppStatusApproved {
		t.Errorf("expected approved first, got %s", result[0].Status)
	}
	for _, row := range result {
		if row.Status == entity.OppStatusDraft {
			if row.Count != 2 || row.Percent != 50 {
				t.Errorf("draft row: count %d percent %f", row.Count, row.Percent)
			}
		}
	}
}

func TestSummarizeStatusEmpty(t *testing.T) {
	result := SummarizeStatus(nil)
	if len(result) != 0 {
		t.Errorf("expected empty summary, got %d rows", len(result))
	}
}

func TestBucketByDay(t *testing.T) {
	now := time.Date(2026, 8, 29, 15, 30, 0, 0, time.UTC)
	opps := []entity.Opportunity{
		{CreatedAt: now.Add(-1 * time.Hour)},
		{CreatedAt: now.AddDate(0, 0, -1)},
		{CreatedAt: now.AddDate(0, 0, -1).Add(2 * time.Hour)},
		{CreatedAt: now.AddDate(0, 0, -10)}, // 窗口外
		{},                                  // 缺失时间，排除
	}

	buckets := BucketByDay(opps, 7, now)
	if len(buckets) != 7 {
		t.Fatalf("expected 7 buckets, got %d", len(buckets))
	}
	if buckets[0].Date != "2026-08-23" {
		t.Errorf("expected window start 2026-08-23, got %s", buckets[0].Date)
	}
	last := buckets[6]
	if last.Date != "2026-08-29" || last.Count != 1 {
		t.Errorf("today bucket: %+v", last)
	}
	if buckets[5].Count != 2 {
		t.Errorf("expected 2 for yesterday, got %d", buckets[5].Count)
	}

	total := 0
	for _, b := range buckets {
		total += b.Count
	}
	if total != 3 {
		t.Errorf("expected 3 in-window records, got %d", total)
	}
}

func TestBucketByDayMinimumWindow(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	buckets := BucketByDay(nil, 0, now)
	if len(buckets) != 1 {
		t.Fatalf("expected days floor of 1, got %d buckets", len(buckets))
	}
}

func TestTallyPopularServices(t *testing.T) {
	catalog := []entity.Service{
		{ID: "svc-a", Name: "系统集成"},
		{ID: "svc-b", Name: "运维服务"},
		{ID: "svc-c", Name: "咨询服务"},
	}
	opps := []entity.Opportunity{
		{Services: []entity.OpportunityService{
			{ServiceID: "svc-a", Quantity: 2},
			{ServiceID: "svc-b", Quantity: 1},
		}},
	}
	contracts := []entity.Contract{
		{Quote: &entity.Quote{Items: []entity.QuoteItem{
			{ServiceID: "svc-b", Quantity: 4},
		}}},
		{Quote: nil},
	}

	result := TallyPopularServices(opps, contracts, catalog)
	if len(result) != 2 {
		t.Fatalf("expected 2 used services, got %d", len(result))
	}
	if result[0].ServiceID != "svc-b" || result[0].Quantity != 5 {
		t.Errorf("expected svc-b first with 5, got %+v", result[0])
	}
	if result[0].ServiceName != "运维服务" {
		t.Errorf("expected name resolved from catalog, got %s", result[0].ServiceName)
	}
	if result[1].ServiceID != "svc-a" || result[1].Quantity != 2 {
		t.Errorf("expected svc-a with 2, got %+v", result[1])
	}
}

func TestTallyPopularServicesTieBreak(t *testing.T) {
	catalog := []entity.Service{{ID: "svc-a"}, {ID: "svc-b"}}
	opps := []entity.Opportunity{
		{Services: []entity.OpportunityService{
			{ServiceID: "svc-b", Quantity: 3},
			{ServiceID: "svc-a", Quantity: 3},
		}},
	}

	result := TallyPopularServices(opps, nil, catalog)
	if len(result) != 2 || result[0].ServiceID != "svc-a" {
		t.Errorf("tie should break by service id, got %+v", result)
	}
}

func TestTallyPopularServicesCatalogFallback(t *testing.T) {
	catalog := []entity.Service{
		{ID: "svc-a", Name: "系统集成"},
		{ID: "svc-b", Name: "运维服务"},
	}

	result := TallyPopularServices(nil, nil, catalog)
	if len(result) != 2 {
		t.Fatalf("expected whole-catalog fallback, got %d rows", len(result))
	}
	for _, row := range result {
		if row.Quantity != 0 {
			t.Errorf("fallback rows should have zero quantity, got %+v", row)
		}
	}
}
