package service

import (
	"context"
	"sync"
	"testing"

	"github.com/bitfantasy/nimo-crm/internal/crm/apperr"
	"github.com/bitfantasy/nimo-crm/internal/crm/entity"
	"github.com/bitfantasy/nimo-crm/internal/crm/pricing"
	"github.com/bitfantasy/nimo-crm/internal/crm/repository"
	"github.com/bitfantasy/nimo-crm/internal/crm/testutil"
	"gorm.io/gorm"
)

var (
	salesActor = Actor{ID: "u-sales-001", Name: "Sales One", Role: entity.RoleSales}
	bodActor   = Actor{ID: "u-bod-001", Name: "BOD One", Role: entity.RoleBOD}
)

func newTestEnv(t *testing.T) (*gorm.DB, *repository.Repositories, *Services) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svcs := &Services{
		Opportunity: NewOpportunityService(db, repos, pricing.DefaultPolicy),
		Quote:       NewQuoteService(db, repos, pricing.DefaultPolicy),
		Acceptance:  NewAcceptanceService(db, repos),
		Report:      NewReportService(db, repos, nil),
		Directory:   NewDirectoryService(repos.Customer),
		Catalog:     NewCatalogService(repos.Catalog),
		Project:     NewProjectService(repos.Project),
	}
	return db, repos, svcs
}

func validOppRequest(serviceID string) CreateOpportunityRequest {
	return CreateOpportunityRequest{
		Name:                 "智慧园区数字化改造",
		Description:          "园区管理系统建设与三年运维",
		BusinessField:        "digital_transformation",
		ExpectedRevenue:      500000,
		ExpectedBudget:       350000,
		SuccessRate:          60,
		StartDate:            "2026-03-01",
		EndDate:              "2026-09-30",
		ImplementationMonths: 6,
		Services: []ServiceLineInput{
			{ServiceID: serviceID, Quantity: 3},
		},
	}
}

func TestCreateOpportunityDraft(t *testing.T) {
	db, _, svcs := newTestEnv(t)
	ctx := context.Background()

	svc := testutil.SeedService(t, db, "系统集成", 100000)

	opp, err := svcs.Opportunity.Create(ctx, validOppRequest(svc.ID), salesActor)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if opp.Status != entity.OppStatusDraft {
		t.Errorf("expected status draft, got %s", opp.Status)
	}
	if opp.ExpectedPrice != 300000 {
		t.Errorf("expected price 300000, got %f", opp.ExpectedPrice)
	}
	if opp.PriceIncomplete {
		t.Error("price should not be incomplete with resolvable catalog lines")
	}
	if len(opp.Services) != 1 {
		t.Fatalf("expected 1 service line, got %d", len(opp.Services))
	}
	if opp.Code == "" {
		t.Error("expected generated code")
	}
}

func TestCreateOpportunityUnresolvedServiceMarksIncomplete(t *testing.T) {
	db, _, svcs := newTestEnv(t)
	ctx := context.Background()

	svc := testutil.SeedService(t, db, "系统集成", 100000)

	req := validOppRequest(svc.ID)
	req.Services = append(req.Services, ServiceLineInput{ServiceID: "no-such-service", Quantity: 2})

	opp, err := svcs.Opportunity.Create(ctx, req, salesActor)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !opp.PriceIncomplete {
		t.Error("expected PriceIncomplete with unresolved catalog id")
	}
	if opp.ExpectedPrice != 300000 {
		t.Errorf("expected partial price 300000, got %f", opp.ExpectedPrice)
	}
}

func TestCreateOpportunityValidation(t *testing.T) {
	db, _, svcs := newTestEnv(t)
	ctx := context.Background()

	svc := testutil.SeedService(t, db, "系统集成", 100000)

	tests := []struct {
		name   string
		mutate func(*CreateOpportunityRequest)
	}{
		{"no service lines", func(r *CreateOpportunityRequest) { r.Services = nil }},
		{"zero quantity", func(r *CreateOpportunityRequest) { r.Services[0].Quantity = 0 }},
		{"success rate out of range", func(r *CreateOpportunityRequest) { r.SuccessRate = 101 }},
		{"bad start date", func(r *CreateOpportunityRequest) { r.StartDate = "03/01/2026" }},
		{"end before start", func(r *CreateOpportunityRequest) { r.EndDate = "2026-01-01" }},
		{"customer id and temp both set", func(r *CreateOpportunityRequest) {
			r.CustomerID = "some-id"
			r.CustomerTemp = entity.JSONB{"name": "临时客户"}
		}},
		{"referral source without referral id", func(r *CreateOpportunityRequest) {
			r.CustomerSource = entity.CustomerSourceReferral
		}},
		{"too many attachments", func(r *CreateOpportunityRequest) {
			for i := 0; i < 6; i++ {
				r.Attachments = append(r.Attachments, AttachmentInput{URL: "https://example.com/f"})
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validOppRequest(svc.ID)
			tt.mutate(&req)
			_, err := svcs.Opportunity.Create(ctx, req, salesActor)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !apperr.IsKind(err, apperr.KindValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestSubmitAndApproveFlow(t *testing.T) {
	db, _, svcs := newTestEnv(t)
	ctx := context.Background()

	svc := testutil.SeedService(t, db, "系统集成", 100000)

	opp, err := svcs.Opportunity.Create(ctx, validOppRequest(svc.ID), salesActor)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// 草稿状态不允许审批
	if _, err := svcs.Opportunity.Approve(ctx, opp.ID, bodActor); !apperr.IsKind(err, apperr.KindInvalidTransition) {
		t.Errorf("expected invalid_transition approving a draft, got %v", err)
	}

	opp, err = svcs.Opportunity.Submit(ctx, opp.ID)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if opp.Status != entity.OppStatusWaitingBOD {
		t.Fatalf("expected waiting_bod_approval, got %s", opp.Status)
	}

	// 重复提交
	if _, err := svcs.Opportunity.Submit(ctx, opp.ID); !apperr.IsKind(err, apperr.KindInvalidTransition) {
		t.Errorf("expected invalid_transition on double submit, got %v", err)
	}

	// 销售角色无权审批
	if _, err := svcs.Opportunity.Approve(ctx, opp.ID, salesActor); !apperr.IsKind(err, apperr.KindAuthorization) {
		t.Errorf("expected authorization error for sales actor, got %v", err)
	}

	// 客户信息缺失时状态正确但前置条件不满足
	if _, err := svcs.Opportunity.Approve(ctx, opp.ID, bodActor); !apperr.IsKind(err, apperr.KindPrecondition) {
		t.Errorf("expected precondition error without customer info, got %v", err)
	}

	// 补充临时客户后审批通过
	if _, err := svcs.Opportunity.UpdateCustomerInfo(ctx, opp.ID, UpdateCustomerInfoRequest{
		CustomerTemp: entity.JSONB{"name": "上海某科技公司", "contact": "王先生"},
	}); err != nil {
		t.Fatalf("UpdateCustomerInfo failed: %v", err)
	}

	opp, err = svcs.Opportunity.Approve(ctx, opp.ID, bodActor)
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if opp.Status != entity.OppStatusApproved {
		t.Errorf("expected approved, got %s", opp.Status)
	}
	if opp.ApprovedBy != bodActor.ID {
		t.Errorf("expected approved_by %s, got %s", bodActor.ID, opp.ApprovedBy)
	}
	if opp.ApprovedAt == nil {
		t.Error("expected approved_at to be set")
	}

	// 审批通过后不允许再改客户信息
	_, err = svcs.Opportunity.UpdateCustomerInfo(ctx, opp.ID, UpdateCustomerInfoRequest{CustomerTemp: entity.JSONB{"name": "x"}})
	if !apperr.IsKind(err, apperr.KindInvalidTransition) {
		t.Errorf("expected invalid_transition updating customer after approval, got %v", err)
	}
}

func TestRejectIsTerminal(t *testing.T) {
	db, _, svcs := newTestEnv(t)
	ctx := context.Background()

	svc := testutil.SeedService(t, db, "系统集成", 100000)

	opp, err := svcs.Opportunity.Create(ctx, validOppRequest(svc.ID), salesActor)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svcs.Opportunity.Submit(ctx, opp.ID); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	opp, err = svcs.Opportunity.Reject(ctx, opp.ID, bodActor)
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if opp.Status != entity.OppStatusRejected {
		t.Errorf("expected rejected, got %s", opp.Status)
	}

	// 终态后任何流转都被拒绝
	if _, err := svcs.Opportunity.Submit(ctx, opp.ID); !apperr.IsKind(err, apperr.KindInvalidTransition) {
		t.Errorf("expected invalid_transition submitting a rejected opportunity, got %v", err)
	}
	if _, err := svcs.Opportunity.Approve(ctx, opp.ID, bodActor); !apperr.IsKind(err, apperr.KindInvalidTransition) {
		t.Errorf("expected invalid_transition approving a rejected opportunity, got %v", err)
	}
}

func TestConcurrentApproveSingleWinner(t *testing.T) {
	db, _, svcs := newTestEnv(t)
	ctx := context.Background()

	svc := testutil.SeedService(t, db, "系统集成", 100000)

	req := validOppRequest(svc.ID)
	req.CustomerTemp = entity.JSONB{"name": "并发测试客户"}
	opp, err := svcs.Opportunity.Create(ctx, req, salesActor)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svcs.Opportunity.Submit(ctx, opp.ID); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	const workers = 4
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, errs[idx] = svcs.Opportunity.Approve(ctx, opp.ID, bodActor)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		if !apperr.IsKind(err, apperr.KindInvalidTransition) {
			t.Errorf("loser should see invalid_transition, got %v", err)
		}
	}
	if winners != 1 {
		t.Errorf("expected exactly one winner, got %d", winners)
	}

	final, err := svcs.Opportunity.Get(ctx, opp.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if final.Status != entity.OppStatusApproved {
		t.Errorf("expected approved after concurrent approve, got %s", final.Status)
	}
}
