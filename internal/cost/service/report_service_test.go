package service

import (
	"context"
	"errors"
	"testing"

	"github.com/abushanisro/mithran-sub001/internal/cost/repository"
	"github.com/abushanisro/mithran-sub001/internal/cost/testutil"
)

func TestGetBOMReportEmptyBOM(t *testing.T) {
	db, svc := setupRollupTest(t)
	testutil.SeedBOM(t, db, "bom-empty", "Empty")

	report, err := svc.Report.GetBOMReport(context.Background(), "bom-empty", testOwner)
	if err != nil {
		t.Fatalf("GetBOMReport: %v", err)
	}
	if report.TotalItems != 0 || report.RootItems != 0 || report.StaleItems != 0 {
		t.Errorf("empty BOM counts = %d/%d/%d, want all zero", report.TotalItems, report.RootItems, report.StaleItems)
	}
	if report.GrandTotalCost != 0 || report.GrandSellingPrice != 0 {
		t.Errorf("empty BOM totals = %v/%v, want zero", report.GrandTotalCost, report.GrandSellingPrice)
	}
	if len(report.ByItemType) != 0 {
		t.Errorf("empty BOM breakdown has %d entries, want 0", len(report.ByItemType))
	}
}

// 报表总计只对根行项求和：父项totalCost已包含后代，
// 全量求和会把同一笔成本算两遍
func TestGetBOMReportNoDoubleCounting(t *testing.T) {
	db, svc := setupRollupTest(t)
	seedThreeLevelTree(t, db)
	ctx := context.Background()

	if _, err := svc.Rollup.RecalculateAll(ctx, "bom-001", testOwner); err != nil {
		t.Fatalf("RecalculateAll: %v", err)
	}

	report, err := svc.Report.GetBOMReport(ctx, "bom-001", testOwner)
	if err != nil {
		t.Fatalf("GetBOMReport: %v", err)
	}

	if report.TotalItems != 3 {
		t.Errorf("totalItems = %d, want 3", report.TotalItems)
	}
	if report.RootItems != 1 {
		t.Errorf("rootItems = %d, want 1", report.RootItems)
	}
	// 根R的totalCost=30；全量求和会得到 5+15+30=50
	if report.GrandTotalCost != 30 {
		t.Errorf("grandTotalCost = %v, want 30 (root only)", report.GrandTotalCost)
	}
	if report.StaleItems != 0 {
		t.Errorf("staleItems = %d, want 0 after full rollup", report.StaleItems)
	}

	// 分类汇总对全部行项求和，且按类型名排序
	if len(report.ByItemType) != 3 {
		t.Fatalf("breakdown has %d types, want 3", len(report.ByItemType))
	}
	for i := 1; i < len(report.ByItemType); i++ {
		if report.ByItemType[i-1].ItemType > report.ByItemType[i].ItemType {
			t.Errorf("breakdown not sorted by item type: %s before %s",
				report.ByItemType[i-1].ItemType, report.ByItemType[i].ItemType)
		}
	}
	var sumTotal float64
	for _, tb := range report.ByItemType {
		sumTotal += tb.TotalCost
	}
	if sumTotal != 50 {
		t.Errorf("sum of per-type totalCost = %v, want 50 (all items)", sumTotal)
	}
}

func TestGetBOMReportMarginAverages(t *testing.T) {
	db, svc := setupRollupTest(t)
	testutil.SeedBOM(t, db, "bom-margins", "Margins")
	testutil.SeedItem(t, db, "item-m1", "bom-margins", "", "assembly", 1)
	testutil.SeedItem(t, db, "item-m2", "bom-margins", "", "assembly", 1)
	testutil.SeedCostInputs(t, db, "item-m1", testOwner, 100, 0, 10, 20)
	testutil.SeedCostInputs(t, db, "item-m2", testOwner, 100, 0, 20, 40)
	ctx := context.Background()

	if _, err := svc.Rollup.RecalculateAll(ctx, "bom-margins", testOwner); err != nil {
		t.Fatalf("RecalculateAll: %v", err)
	}
	report, err := svc.Report.GetBOMReport(ctx, "bom-margins", testOwner)
	if err != nil {
		t.Fatalf("GetBOMReport: %v", err)
	}

	if report.AvgSGAPercentage != 15 {
		t.Errorf("avgSGAPercentage = %v, want 15", report.AvgSGAPercentage)
	}
	if report.AvgProfitPercentage != 30 {
		t.Errorf("avgProfitPercentage = %v, want 30", report.AvgProfitPercentage)
	}
	// 100*1.10*1.20 + 100*1.20*1.40 = 132 + 168
	if !almostEqual(report.GrandSellingPrice, 300) {
		t.Errorf("grandSellingPrice = %v, want 300", report.GrandSellingPrice)
	}
}

func TestGetHierarchy(t *testing.T) {
	db, svc := setupRollupTest(t)
	seedThreeLevelTree(t, db)
	ctx := context.Background()

	if _, err := svc.Rollup.RecalculateAll(ctx, "bom-001", testOwner); err != nil {
		t.Fatalf("RecalculateAll: %v", err)
	}

	node, err := svc.Report.GetHierarchy(ctx, "item-r", testOwner)
	if err != nil {
		t.Fatalf("GetHierarchy: %v", err)
	}

	if node.ItemID != "item-r" || node.TotalCost != 30 {
		t.Errorf("root node = %s/%v, want item-r/30", node.ItemID, node.TotalCost)
	}
	if len(node.Children) != 1 {
		t.Fatalf("root has %d children, want 1", len(node.Children))
	}
	childA := node.Children[0]
	if childA.ItemID != "item-a" || childA.TotalCost != 15 || childA.Quantity != 2 {
		t.Errorf("child = %s/%v/qty %v, want item-a/15/2", childA.ItemID, childA.TotalCost, childA.Quantity)
	}
	if len(childA.Children) != 1 || childA.Children[0].ItemID != "item-b" {
		t.Fatalf("item-a children = %v, want [item-b]", childA.Children)
	}
	if !childA.Children[0].HasCostRecord {
		t.Errorf("leaf node missing cost record flag")
	}
}

func TestGetHierarchySubtreeOnly(t *testing.T) {
	db, svc := setupRollupTest(t)
	seedThreeLevelTree(t, db)

	node, err := svc.Report.GetHierarchy(context.Background(), "item-a", testOwner)
	if err != nil {
		t.Fatalf("GetHierarchy: %v", err)
	}
	if node.ItemID != "item-a" {
		t.Errorf("node = %s, want item-a", node.ItemID)
	}
	if len(node.Children) != 1 || node.Children[0].ItemID != "item-b" {
		t.Errorf("subtree should contain only item-b, got %v", node.Children)
	}
}

func TestGetHierarchyItemWithoutRecord(t *testing.T) {
	db, svc := setupRollupTest(t)
	testutil.SeedBOM(t, db, "bom-norec", "NoRecord")
	testutil.SeedItem(t, db, "item-bare", "bom-norec", "", "part", 1)

	node, err := svc.Report.GetHierarchy(context.Background(), "item-bare", testOwner)
	if err != nil {
		t.Fatalf("GetHierarchy: %v", err)
	}
	if node.HasCostRecord {
		t.Errorf("item without record reported has_cost_record = true")
	}
	if node.TotalCost != 0 {
		t.Errorf("item without record totalCost = %v, want 0", node.TotalCost)
	}
}

func TestListStaleItems(t *testing.T) {
	db, svc := setupRollupTest(t)
	seedThreeLevelTree(t, db)
	ctx := context.Background()

	// 种子记录初始即stale
	stale, err := svc.Report.ListStaleItems(ctx, "bom-001", testOwner)
	if err != nil {
		t.Fatalf("ListStaleItems: %v", err)
	}
	if len(stale) != 2 {
		t.Fatalf("stale items = %d, want 2 seeded records", len(stale))
	}
	for _, s := range stale {
		if s.Name == "" || s.ItemType == "" {
			t.Errorf("stale item %s missing name/type enrichment", s.ItemID)
		}
	}

	if _, err := svc.Rollup.RecalculateAll(ctx, "bom-001", testOwner); err != nil {
		t.Fatalf("RecalculateAll: %v", err)
	}
	stale, err = svc.Report.ListStaleItems(ctx, "bom-001", testOwner)
	if err != nil {
		t.Fatalf("ListStaleItems after rollup: %v", err)
	}
	if len(stale) != 0 {
		t.Errorf("stale items after rollup = %d, want 0", len(stale))
	}
}

func TestExportBOMReport(t *testing.T) {
	db, svc := setupRollupTest(t)
	seedThreeLevelTree(t, db)
	ctx := context.Background()

	if _, err := svc.Rollup.RecalculateAll(ctx, "bom-001", testOwner); err != nil {
		t.Fatalf("RecalculateAll: %v", err)
	}

	f, filename, err := svc.Report.ExportBOMReport(ctx, "bom-001", testOwner)
	if err != nil {
		t.Fatalf("ExportBOMReport: %v", err)
	}
	defer f.Close()

	if filename == "" {
		t.Errorf("empty export filename")
	}

	got, err := f.GetCellValue("成本报表", "A1")
	if err != nil {
		t.Fatalf("GetCellValue: %v", err)
	}
	if got != "物料类型" {
		t.Errorf("header A1 = %q, want 物料类型", got)
	}

	rows, err := f.GetRows("成本报表")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	// 表头 + 3个类型行 + 空行 + 汇总行
	if len(rows) < 5 {
		t.Errorf("export has %d rows, want at least 5", len(rows))
	}
}

func TestExportBOMReportMissingBOM(t *testing.T) {
	_, svc := setupRollupTest(t)

	_, _, err := svc.Report.ExportBOMReport(context.Background(), "nonexistent", testOwner)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("ExportBOMReport on missing BOM = %v, want ErrNotFound", err)
	}
}
