package service

import (
	"context"
	"testing"

	"github.com/bitfantasy/nimo-crm/internal/crm/apperr"
	"github.com/bitfantasy/nimo-crm/internal/crm/entity"
	"github.com/bitfantasy/nimo-crm/internal/crm/testutil"
	"gorm.io/gorm"
)

// approvedOpportunity 准备一个已通过BOD审批、可报价的商机
func approvedOpportunity(t *testing.T, db *gorm.DB, svcs *Services, serviceID string) *entity.Opportunity {
	t.Helper()
	ctx := context.Background()

	req := validOppRequest(serviceID)
	req.CustomerTemp = entity.JSONB{"name": "报价测试客户"}
	opp, err := svcs.Opportunity.Create(ctx, req, salesActor)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svcs.Opportunity.Submit(ctx, opp.ID); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	opp, err = svcs.Opportunity.Approve(ctx, opp.ID, bodActor)
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	return opp
}

func TestQuoteLifecycleToContract(t *testing.T) {
	db, _, svcs := newTestEnv(t)
	ctx := context.Background()

	catalogSvc := testutil.SeedService(t, db, "系统集成", 100000)
	opp := approvedOpportunity(t, db, svcs, catalogSvc.ID)

	quote, err := svcs.Quote.CreateOrReplace(ctx, opp.ID, CreateQuoteRequest{
		Lines: []QuoteLineInput{{ServiceID: catalogSvc.ID, Quantity: 3, UnitPrice: 150000}},
	}, salesActor)
	if err != nil {
		t.Fatalf("CreateOrReplace failed: %v", err)
	}
	if quote.Status != entity.QuoteStatusPending {
		t.Errorf("expected pending quote, got %s", quote.Status)
	}
	if !quote.IsActive {
		t.Error("new quote should be active")
	}
	if quote.TotalRevenue != 450000 {
		t.Errorf("expected total revenue 450000, got %f", quote.TotalRevenue)
	}
	if quote.TotalCost != 300000 {
		t.Errorf("expected total cost 300000, got %f", quote.TotalCost)
	}
	if len(quote.Items) != 1 || quote.Items[0].BaseCost != 100000 {
		t.Error("quote item should snapshot catalog base cost")
	}

	opp2, _ := svcs.Opportunity.Get(ctx, opp.ID)
	if opp2.Status != entity.OppStatusQuoted {
		t.Fatalf("expected opportunity quoted, got %s", opp2.Status)
	}

	// 报价待审时不能转合同
	if _, err := svcs.Opportunity.ConvertToContract(ctx, opp.ID, salesActor); !apperr.IsKind(err, apperr.KindPrecondition) {
		t.Errorf("expected precondition error converting with pending quote, got %v", err)
	}

	quote, err = svcs.Quote.Approve(ctx, quote.ID, "价格合理", bodActor)
	if err != nil {
		t.Fatalf("quote Approve failed: %v", err)
	}
	if quote.Status != entity.QuoteStatusApproved {
		t.Errorf("expected approved quote, got %s", quote.Status)
	}

	contract, err := svcs.Opportunity.ConvertToContract(ctx, opp.ID, salesActor)
	if err != nil {
		t.Fatalf("ConvertToContract failed: %v", err)
	}
	if contract.TotalValue != 450000 {
		t.Errorf("contract value should equal quote revenue, got %f", contract.TotalValue)
	}
	if contract.QuoteID != quote.ID {
		t.Error("contract should reference the approved quote")
	}

	opp3, _ := svcs.Opportunity.Get(ctx, opp.ID)
	if opp3.Status != entity.OppStatusContractCreated {
		t.Errorf("expected contract_created, got %s", opp3.Status)
	}

	// 二次转化
	if _, err := svcs.Opportunity.ConvertToContract(ctx, opp.ID, salesActor); !apperr.IsKind(err, apperr.KindInvalidTransition) {
		t.Errorf("expected invalid_transition on double convert, got %v", err)
	}
}

func TestQuoteRejectAndRequote(t *testing.T) {
	db, _, svcs := newTestEnv(t)
	ctx := context.Background()

	catalogSvc := testutil.SeedService(t, db, "系统集成", 100000)
	opp := approvedOpportunity(t, db, svcs, catalogSvc.ID)

	first, err := svcs.Quote.CreateOrReplace(ctx, opp.ID, CreateQuoteRequest{
		Lines: []QuoteLineInput{{ServiceID: catalogSvc.ID, Quantity: 3, UnitPrice: 110000}},
	}, salesActor)
	if err != nil {
		t.Fatalf("CreateOrReplace failed: %v", err)
	}

	first, err = svcs.Quote.Reject(ctx, first.ID, "低于最低加成", bodActor)
	if err != nil {
		t.Fatalf("quote Reject failed: %v", err)
	}
	if first.Status != entity.QuoteStatusRejected {
		t.Errorf("expected rejected quote, got %s", first.Status)
	}

	opp2, _ := svcs.Opportunity.Get(ctx, opp.ID)
	if opp2.Status != entity.OppStatusQuoteRejected {
		t.Fatalf("expected quote_rejected, got %s", opp2.Status)
	}

	// 重新报价：新记录生效，旧记录保留历史
	second, err := svcs.Quote.CreateOrReplace(ctx, opp.ID, CreateQuoteRequest{
		Lines: []QuoteLineInput{{ServiceID: catalogSvc.ID, Quantity: 3, UnitPrice: 145000}},
	}, salesActor)
	if err != nil {
		t.Fatalf("re-quote failed: %v", err)
	}
	if second.ID == first.ID {
		t.Error("re-quote must create a new record")
	}
	if !second.IsActive {
		t.Error("new quote should be active")
	}

	history, err := svcs.Quote.ListByOpportunity(ctx, opp.ID)
	if err != nil {
		t.Fatalf("ListByOpportunity failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 quotes in history, got %d", len(history))
	}

	active, err := svcs.Quote.GetActiveByOpportunity(ctx, opp.ID)
	if err != nil {
		t.Fatalf("GetActiveByOpportunity failed: %v", err)
	}
	if active.ID != second.ID {
		t.Error("active quote should be the latest one")
	}

	opp3, _ := svcs.Opportunity.Get(ctx, opp.ID)
	if opp3.Status != entity.OppStatusQuoted {
		t.Errorf("expected quoted after re-quote, got %s", opp3.Status)
	}
}

func TestQuoteGuards(t *testing.T) {
	db, _, svcs := newTestEnv(t)
	ctx := context.Background()

	catalogSvc := testutil.SeedService(t, db, "系统集成", 100000)

	// 未审批的商机不可报价
	draft, err := svcs.Opportunity.Create(ctx, validOppRequest(catalogSvc.ID), salesActor)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	_, err = svcs.Quote.CreateOrReplace(ctx, draft.ID, CreateQuoteRequest{
		Lines: []QuoteLineInput{{ServiceID: catalogSvc.ID, Quantity: 1, UnitPrice: 120000}},
	}, salesActor)
	if !apperr.IsKind(err, apperr.KindInvalidTransition) {
		t.Errorf("expected invalid_transition quoting a draft, got %v", err)
	}

	opp := approvedOpportunity(t, db, svcs, catalogSvc.ID)

	// 目录解析不到的服务行直接驳回
	_, err = svcs.Quote.CreateOrReplace(ctx, opp.ID, CreateQuoteRequest{
		Lines: []QuoteLineInput{{ServiceID: "missing-service", Quantity: 1, UnitPrice: 120000}},
	}, salesActor)
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error for unknown service, got %v", err)
	}

	quote, err := svcs.Quote.CreateOrReplace(ctx, opp.ID, CreateQuoteRequest{
		Lines: []QuoteLineInput{{ServiceID: catalogSvc.ID, Quantity: 1, UnitPrice: 120000}},
	}, salesActor)
	if err != nil {
		t.Fatalf("CreateOrReplace failed: %v", err)
	}

	// 非审批角色
	if _, err := svcs.Quote.Approve(ctx, quote.ID, "", salesActor); !apperr.IsKind(err, apperr.KindAuthorization) {
		t.Errorf("expected authorization error, got %v", err)
	}

	// 重复审批
	if _, err := svcs.Quote.Approve(ctx, quote.ID, "", bodActor); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if _, err := svcs.Quote.Approve(ctx, quote.ID, "", bodActor); !apperr.IsKind(err, apperr.KindInvalidTransition) {
		t.Errorf("expected invalid_transition on double approve, got %v", err)
	}
}

func TestQuoteBounds(t *testing.T) {
	db, _, svcs := newTestEnv(t)
	ctx := context.Background()

	catalogSvc := testutil.SeedService(t, db, "系统集成", 100000)

	bounds, err := svcs.Quote.Bounds(ctx, catalogSvc.ID)
	if err != nil {
		t.Fatalf("Bounds failed: %v", err)
	}
	if bounds.Min != 120000 {
		t.Errorf("expected min price 120000, got %f", bounds.Min)
	}
	if bounds.Suggested != 140000 {
		t.Errorf("expected suggested price 140000, got %f", bounds.Suggested)
	}

	if _, err := svcs.Quote.Bounds(ctx, "missing"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("expected not_found, got %v", err)
	}
}
