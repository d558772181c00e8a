package handler

import (
	"net/http"
	"testing"

	"github.com/bitfantasy/nimo-crm/internal/crm/pricing"
	"github.com/bitfantasy/nimo-crm/internal/crm/repository"
	"github.com/bitfantasy/nimo-crm/internal/crm/service"
	"github.com/bitfantasy/nimo-crm/internal/crm/testutil"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func setupOpportunityTest(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)

	oppHandler := NewOpportunityHandler(service.NewOpportunityService(db, repos, pricing.DefaultPolicy))
	quoteHandler := NewQuoteHandler(service.NewQuoteService(db, repos, pricing.DefaultPolicy))

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1/crm")
	api.GET("/opportunities", oppHandler.ListOpportunities)
	api.POST("/opportunities", oppHandler.CreateOpportunity)
	api.GET("/opportunities/:id", oppHandler.GetOpportunity)
	api.PUT("/opportunities/:id/customer", oppHandler.UpdateCustomerInfo)
	api.POST("/opportunities/:id/submit", oppHandler.SubmitOpportunity)
	api.POST("/opportunities/:id/approve", oppHandler.ApproveOpportunity)
	api.POST("/opportunities/:id/reject", oppHandler.RejectOpportunity)
	api.POST("/opportunities/:id/quotes", quoteHandler.CreateQuote)
	api.GET("/opportunities/:id/quotes/active", quoteHandler.GetActiveQuote)
	api.POST("/quotes/:id/approve", quoteHandler.ApproveQuote)

	return db, router
}

func opportunityBody(serviceID string) map[string]interface{} {
	return map[string]interface{}{
		"name":                  "智慧园区数字化改造",
		"description":           "园区一期数字化改造项目",
		"business_field":        "smart_park",
		"expected_revenue":      500000,
		"expected_budget":       400000,
		"success_rate":          60,
		"start_date":            "2026-03-01",
		"end_date":              "2026-09-30",
		"implementation_months": 6,
		"customer_temp":         map[string]interface{}{"name": "测试园区运营方"},
		"services": []map[string]interface{}{
			{"service_id": serviceID, "quantity": 3},
		},
	}
}

func TestOpportunityCreateAndApproveFlow(t *testing.T) {
	db, router := setupOpportunityTest(t)
	salesToken := testutil.SalesToken()
	bodToken := testutil.BODToken()

	catalogSvc := testutil.SeedService(t, db, "系统集成", 100000)

	// Create draft
	w := testutil.DoRequest(router, http.MethodPost, "/api/v1/crm/opportunities", opportunityBody(catalogSvc.ID), salesToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["status"] != "draft" {
		t.Fatalf("expected status draft, got %v", data["status"])
	}
	if data["expected_price"].(float64) != 300000 {
		t.Fatalf("expected price 300000, got %v", data["expected_price"])
	}
	oppID := data["id"].(string)

	// Submit
	w2 := testutil.DoRequest(router, http.MethodPost, "/api/v1/crm/opportunities/"+oppID+"/submit", nil, salesToken)
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200 for submit, got %d: %s", w2.Code, w2.Body.String())
	}
	resp2 := testutil.ParseResponse(w2)
	if resp2["data"].(map[string]interface{})["status"] != "waiting_bod_approval" {
		t.Fatalf("expected waiting_bod_approval, got %s", w2.Body.String())
	}

	// Sales cannot approve
	w3 := testutil.DoRequest(router, http.MethodPost, "/api/v1/crm/opportunities/"+oppID+"/approve", nil, salesToken)
	if w3.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for sales approve, got %d: %s", w3.Code, w3.Body.String())
	}

	// BOD approves
	w4 := testutil.DoRequest(router, http.MethodPost, "/api/v1/crm/opportunities/"+oppID+"/approve", nil, bodToken)
	if w4.Code != http.StatusOK {
		t.Fatalf("expected 200 for approve, got %d: %s", w4.Code, w4.Body.String())
	}
	resp4 := testutil.ParseResponse(w4)
	if resp4["data"].(map[string]interface{})["status"] != "approved" {
		t.Fatalf("expected approved, got %s", w4.Body.String())
	}

	// Double approve is a conflict
	w5 := testutil.DoRequest(router, http.MethodPost, "/api/v1/crm/opportunities/"+oppID+"/approve", nil, bodToken)
	if w5.Code != http.StatusConflict {
		t.Fatalf("expected 409 for double approve, got %d: %s", w5.Code, w5.Body.String())
	}
}

func TestOpportunityQuoteOverHTTP(t *testing.T) {
	db, router := setupOpportunityTest(t)
	salesToken := testutil.SalesToken()
	bodToken := testutil.BODToken()

	catalogSvc := testutil.SeedService(t, db, "系统集成", 100000)

	w := testutil.DoRequest(router, http.MethodPost, "/api/v1/crm/opportunities", opportunityBody(catalogSvc.ID), salesToken)
	oppID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)
	testutil.DoRequest(router, http.MethodPost, "/api/v1/crm/opportunities/"+oppID+"/submit", nil, salesToken)
	testutil.DoRequest(router, http.MethodPost, "/api/v1/crm/opportunities/"+oppID+"/approve", nil, bodToken)

	// Quote
	quoteBody := map[string]interface{}{
		"lines": []map[string]interface{}{
			{"service_id": catalogSvc.ID, "quantity": 3, "unit_price": 150000},
		},
	}
	w2 := testutil.DoRequest(router, http.MethodPost, "/api/v1/crm/opportunities/"+oppID+"/quotes", quoteBody, salesToken)
	if w2.Code != http.StatusCreated {
		t.Fatalf("expected 201 for quote, got %d: %s", w2.Code, w2.Body.String())
	}
	resp2 := testutil.ParseResponse(w2)
	quoteData := resp2["data"].(map[string]interface{})
	if quoteData["total_revenue"].(float64) != 450000 {
		t.Fatalf("expected total_revenue 450000, got %v", quoteData["total_revenue"])
	}
	quoteID := quoteData["id"].(string)

	// Active quote lookup
	w3 := testutil.DoRequest(router, http.MethodGet, "/api/v1/crm/opportunities/"+oppID+"/quotes/active", nil, salesToken)
	if w3.Code != http.StatusOK {
		t.Fatalf("expected 200 for active quote, got %d: %s", w3.Code, w3.Body.String())
	}
	if testutil.ParseResponse(w3)["data"].(map[string]interface{})["id"] != quoteID {
		t.Fatal("active quote should be the newly created one")
	}

	// BOD approves quote
	w4 := testutil.DoRequest(router, http.MethodPost, "/api/v1/crm/quotes/"+quoteID+"/approve",
		map[string]interface{}{"note": "价格合理"}, bodToken)
	if w4.Code != http.StatusOK {
		t.Fatalf("expected 200 for quote approve, got %d: %s", w4.Code, w4.Body.String())
	}
	if testutil.ParseResponse(w4)["data"].(map[string]interface{})["status"] != "approved" {
		t.Fatalf("expected approved quote, got %s", w4.Body.String())
	}
}

func TestOpportunityValidationOverHTTP(t *testing.T) {
	db, router := setupOpportunityTest(t)
	token := testutil.SalesToken()

	catalogSvc := testutil.SeedService(t, db, "系统集成", 100000)

	// Missing required fields is rejected by binding
	w := testutil.DoRequest(router, http.MethodPost, "/api/v1/crm/opportunities",
		map[string]interface{}{"name": "缺字段"}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}

	// Bad success rate passes binding, rejected by service
	body := opportunityBody(catalogSvc.ID)
	body["success_rate"] = 120
	w2 := testutil.DoRequest(router, http.MethodPost, "/api/v1/crm/opportunities", body, token)
	if w2.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad success rate, got %d: %s", w2.Code, w2.Body.String())
	}

	// Unauthenticated request
	w3 := testutil.DoRequest(router, http.MethodGet, "/api/v1/crm/opportunities", nil, "")
	if w3.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", w3.Code, w3.Body.String())
	}
}
