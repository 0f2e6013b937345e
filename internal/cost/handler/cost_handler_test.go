package handler

import (
	"net/http"
	"testing"

	"github.com/abushanisro/mithran-sub001/internal/cost/repository"
	"github.com/abushanisro/mithran-sub001/internal/cost/service"
	"github.com/abushanisro/mithran-sub001/internal/cost/testutil"
	"gorm.io/gorm"
)

func setupCostHandlerTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	router := testutil.SetupRouter()

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, nil)
	h := NewCostHandler(services.Rollup, services.Report, services.CostInput)

	api := testutil.AuthGroup(router, "/api/v1")
	api.POST("/items/:id/recalculate", h.Recalculate)
	api.POST("/items/:id/propagate", h.Propagate)
	api.POST("/boms/:id/recalculate", h.RecalculateAll)
	api.GET("/items/:id/hierarchy", h.GetHierarchy)
	api.GET("/boms/:id/report", h.GetBOMReport)
	api.GET("/boms/:id/report/export", h.ExportBOMReport)
	api.GET("/boms/:id/stale-items", h.ListStaleItems)
	api.PUT("/items/:id/cost-inputs", h.UpdateCostInputs)
	api.POST("/items/:id/packaging-entries", h.AddPackagingEntry)
	api.POST("/items/:id/procured-entries", h.AddProcuredEntry)
	api.PATCH("/packaging-entries/:entryId/deactivate", h.DeactivatePackagingEntry)
	api.PATCH("/procured-entries/:entryId/deactivate", h.DeactivateProcuredEntry)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

// seedCostTree 种一棵两层树：parent(qty 1) → child(qty 4, own=2.5)
func seedCostTree(t *testing.T, db *gorm.DB) {
	t.Helper()
	testutil.SeedBOM(t, db, "bom-h001", "Handler Test")
	testutil.SeedItem(t, db, "item-parent", "bom-h001", "", "assembly", 1)
	testutil.SeedItem(t, db, "item-child", "bom-h001", "item-parent", "part", 4)
	testutil.SeedCostInputs(t, db, "item-child", "test-user-001", 2.5, 0, 0, 0)
}

func TestRecalculateUnauthorized(t *testing.T) {
	env := setupCostHandlerTest(t)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/items/item-x/recalculate", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRecalculateItemNotFound(t *testing.T) {
	env := setupCostHandlerTest(t)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/items/nonexistent/recalculate", nil, testutil.DefaultTestToken())
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	resp := testutil.ParseResponse(w)
	if resp["code"] != float64(40400) {
		t.Errorf("code = %v, want 40400", resp["code"])
	}
}

func TestRecalculateAllEndpoint(t *testing.T) {
	env := setupCostHandlerTest(t)
	seedCostTree(t, env.DB)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/boms/bom-h001/recalculate", nil, testutil.DefaultTestToken())
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["items_processed"] != float64(2) {
		t.Errorf("items_processed = %v, want 2", data["items_processed"])
	}
}

func TestRecalculateEndpointDerivedValues(t *testing.T) {
	env := setupCostHandlerTest(t)
	seedCostTree(t, env.DB)

	// 先算子项，父项重算才能看到子项总成本
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/items/item-child/recalculate", nil, testutil.DefaultTestToken())
	if w.Code != http.StatusOK {
		t.Fatalf("child recalc status = %d, body = %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.Router, "POST", "/api/v1/items/item-parent/recalculate", nil, testutil.DefaultTestToken())
	if w.Code != http.StatusOK {
		t.Fatalf("parent recalc status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	// directChildrenCost = 2.5 * 4
	if data["direct_children_cost"] != float64(10) {
		t.Errorf("direct_children_cost = %v, want 10", data["direct_children_cost"])
	}
	if data["total_cost"] != float64(10) {
		t.Errorf("total_cost = %v, want 10", data["total_cost"])
	}
	if data["is_stale"] != false {
		t.Errorf("is_stale = %v, want false", data["is_stale"])
	}
}

func TestUpdateCostInputsEndpoint(t *testing.T) {
	env := setupCostHandlerTest(t)
	seedCostTree(t, env.DB)

	body := map[string]interface{}{
		"raw_material_cost": 100,
		"sga_percentage":    10,
		"profit_percentage": 20,
	}
	w := testutil.DoRequest(env.Router, "PUT", "/api/v1/items/item-child/cost-inputs", body, testutil.DefaultTestToken())
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["total_cost"] != float64(100) {
		t.Errorf("total_cost = %v, want 100", data["total_cost"])
	}
	// 100 * 1.10 * 1.20
	if data["selling_price"] != float64(132) {
		t.Errorf("selling_price = %v, want 132", data["selling_price"])
	}
}

func TestUpdateCostInputsNegativeRejected(t *testing.T) {
	env := setupCostHandlerTest(t)
	seedCostTree(t, env.DB)

	body := map[string]interface{}{"raw_material_cost": -5}
	w := testutil.DoRequest(env.Router, "PUT", "/api/v1/items/item-child/cost-inputs", body, testutil.DefaultTestToken())
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	resp := testutil.ParseResponse(w)
	if resp["code"] != float64(40000) {
		t.Errorf("code = %v, want 40000", resp["code"])
	}
}

func TestPackagingEntryLifecycle(t *testing.T) {
	env := setupCostHandlerTest(t)
	seedCostTree(t, env.DB)
	token := testutil.DefaultTestToken()

	body := map[string]interface{}{"description": "export crate", "total_cost": 12.5}
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/items/item-child/packaging-entries", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	entryID, _ := data["id"].(string)
	if entryID == "" {
		t.Fatalf("created entry has no id: %v", data)
	}

	w = testutil.DoRequest(env.Router, "PATCH", "/api/v1/packaging-entries/"+entryID+"/deactivate", nil, token)
	if w.Code != http.StatusOK {
		t.Errorf("deactivate status = %d, body = %s", w.Code, w.Body.String())
	}

	// 重复停用同一条目应报404
	w = testutil.DoRequest(env.Router, "PATCH", "/api/v1/packaging-entries/"+entryID+"/deactivate", nil, token)
	if w.Code != http.StatusNotFound {
		t.Errorf("second deactivate status = %d, want 404", w.Code)
	}
}

func TestProcuredEntryValidation(t *testing.T) {
	env := setupCostHandlerTest(t)
	seedCostTree(t, env.DB)

	// binding:"required" 拒绝缺失的total_cost
	body := map[string]interface{}{"description": "missing cost"}
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/items/item-child/procured-entries", body, testutil.DefaultTestToken())
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetHierarchyEndpoint(t *testing.T) {
	env := setupCostHandlerTest(t)
	seedCostTree(t, env.DB)
	token := testutil.DefaultTestToken()

	testutil.DoRequest(env.Router, "POST", "/api/v1/boms/bom-h001/recalculate", nil, token)

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/items/item-parent/hierarchy", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["item_id"] != "item-parent" {
		t.Errorf("item_id = %v, want item-parent", data["item_id"])
	}
	children, _ := data["children"].([]interface{})
	if len(children) != 1 {
		t.Fatalf("children = %v, want exactly one", children)
	}
}

func TestGetBOMReportEndpoint(t *testing.T) {
	env := setupCostHandlerTest(t)
	seedCostTree(t, env.DB)
	token := testutil.DefaultTestToken()

	testutil.DoRequest(env.Router, "POST", "/api/v1/boms/bom-h001/recalculate", nil, token)

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/boms/bom-h001/report", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["total_items"] != float64(2) {
		t.Errorf("total_items = %v, want 2", data["total_items"])
	}
	if data["grand_total_cost"] != float64(10) {
		t.Errorf("grand_total_cost = %v, want 10 (root only)", data["grand_total_cost"])
	}
}

func TestGetBOMReportEmptyOK(t *testing.T) {
	env := setupCostHandlerTest(t)
	testutil.SeedBOM(t, env.DB, "bom-h-empty", "Empty")

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/boms/bom-h-empty/report", nil, testutil.DefaultTestToken())
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for empty BOM", w.Code)
	}
}

func TestExportBOMReportEndpoint(t *testing.T) {
	env := setupCostHandlerTest(t)
	seedCostTree(t, env.DB)
	token := testutil.DefaultTestToken()

	testutil.DoRequest(env.Router, "POST", "/api/v1/boms/bom-h001/recalculate", nil, token)

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/boms/bom-h001/report/export", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("content type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd == "" {
		t.Errorf("missing Content-Disposition header")
	}
	if w.Body.Len() == 0 {
		t.Errorf("empty export body")
	}
}

func TestListStaleItemsEndpoint(t *testing.T) {
	env := setupCostHandlerTest(t)
	seedCostTree(t, env.DB)

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/boms/bom-h001/stale-items", nil, testutil.DefaultTestToken())
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	items, _ := data["items"].([]interface{})
	if len(items) != 1 {
		t.Errorf("stale items = %d, want 1 seeded record", len(items))
	}
}
