package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/abushanisro/mithran-sub001/internal/cost/entity"
	"github.com/abushanisro/mithran-sub001/internal/cost/repository"
	"github.com/xuri/excelize/v2"
)

// HierarchyNode 行项成本的层级视图节点
type HierarchyNode struct {
	ItemID             string          `json:"item_id"`
	Name               string          `json:"name"`
	ItemType           string          `json:"item_type"`
	Quantity           float64         `json:"quantity"`
	HasCostRecord      bool            `json:"has_cost_record"`
	OwnCost            float64         `json:"own_cost"`
	DirectChildrenCost float64         `json:"direct_children_cost"`
	TotalCost          float64         `json:"total_cost"`
	ExtendedCost       float64         `json:"extended_cost"`
	SellingPrice       float64         `json:"selling_price"`
	IsStale            bool            `json:"is_stale"`
	Children           []*HierarchyNode `json:"children,omitempty"`
}

// TypeBreakdown 按物料类型的成本汇总（对BOM全部行项求和）
type TypeBreakdown struct {
	ItemType     string  `json:"item_type"`
	ItemCount    int     `json:"item_count"`
	OwnCost      float64 `json:"own_cost"`
	TotalCost    float64 `json:"total_cost"`
	ExtendedCost float64 `json:"extended_cost"`
}

// BOMReport BOM成本报表
// 总计只对根行项求和：父项的totalCost已含全部后代，
// 对所有行项求和会重复计算
type BOMReport struct {
	BOMID               string          `json:"bom_id"`
	TotalItems          int             `json:"total_items"`
	RootItems           int             `json:"root_items"`
	StaleItems          int             `json:"stale_items"`
	GrandTotalCost      float64         `json:"grand_total_cost"`
	GrandSellingPrice   float64         `json:"grand_selling_price"`
	AvgSGAPercentage    float64         `json:"avg_sga_percentage"`
	AvgProfitPercentage float64         `json:"avg_profit_percentage"`
	ByItemType          []TypeBreakdown `json:"by_item_type"`
	GeneratedAt         time.Time       `json:"generated_at"`
}

// StaleItem 待重算行项
type StaleItem struct {
	ItemID           string     `json:"item_id"`
	Name             string     `json:"name"`
	ItemType         string     `json:"item_type"`
	LastCalculatedAt *time.Time `json:"last_calculated_at,omitempty"`
}

// ReportService 层级/报表只读视图，不触发任何重算
type ReportService struct {
	itemRepo   *repository.ItemRepository
	recordRepo *repository.CostRecordRepository
	cache      *ReportCache
}

func NewReportService(itemRepo *repository.ItemRepository, recordRepo *repository.CostRecordRepository, cache *ReportCache) *ReportService {
	return &ReportService{
		itemRepo:   itemRepo,
		recordRepo: recordRepo,
		cache:      cache,
	}
}

// GetHierarchy 获取行项及其全部后代的成本层级视图
// 一次取整个BOM的行项和成本记录，在内存中组树，避免逐层查库
func (s *ReportService) GetHierarchy(ctx context.Context, itemID, ownerID string) (*HierarchyNode, error) {
	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("item not found: %w", err)
	}

	items, err := s.itemRepo.ListByBOM(ctx, item.BOMID)
	if err != nil {
		return nil, fmt.Errorf("list bom items: %w", err)
	}

	itemIDs := make([]string, 0, len(items))
	for _, it := range items {
		itemIDs = append(itemIDs, it.ID)
	}
	records, err := s.recordRepo.FindByItems(ctx, itemIDs, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load cost records: %w", err)
	}

	children := make(map[string][]entity.BOMItem, len(items))
	for _, it := range items {
		if !it.IsRoot() {
			children[*it.ParentItemID] = append(children[*it.ParentItemID], it)
		}
	}

	visited := make(map[string]bool, len(items))
	return buildHierarchy(item, children, records, visited), nil
}

// buildHierarchy 递归组装层级节点，visited防止环导致无限递归
func buildHierarchy(item *entity.BOMItem, children map[string][]entity.BOMItem, records map[string]entity.CostRecord, visited map[string]bool) *HierarchyNode {
	visited[item.ID] = true

	node := &HierarchyNode{
		ItemID:   item.ID,
		Name:     item.Name,
		ItemType: item.ItemType,
		Quantity: item.Quantity,
	}
	if rec, ok := records[item.ID]; ok {
		node.HasCostRecord = true
		node.OwnCost = rec.OwnCost
		node.DirectChildrenCost = rec.DirectChildrenCost
		node.TotalCost = rec.TotalCost
		node.ExtendedCost = rec.ExtendedCost
		node.SellingPrice = rec.SellingPrice
		node.IsStale = rec.IsStale
	}

	for i := range children[item.ID] {
		child := children[item.ID][i]
		if visited[child.ID] {
			continue
		}
		node.Children = append(node.Children, buildHierarchy(&child, children, records, visited))
	}
	return node
}

// GetBOMReport 生成BOM成本报表
// 空BOM或全部行项无成本记录时返回零值报表，不报错
func (s *ReportService) GetBOMReport(ctx context.Context, bomID, ownerID string) (*BOMReport, error) {
	if report, ok := s.cache.Get(ctx, bomID, ownerID); ok {
		return report, nil
	}

	items, err := s.itemRepo.ListByBOM(ctx, bomID)
	if err != nil {
		return nil, fmt.Errorf("list bom items: %w", err)
	}

	itemIDs := make([]string, 0, len(items))
	for _, it := range items {
		itemIDs = append(itemIDs, it.ID)
	}
	records, err := s.recordRepo.FindByItems(ctx, itemIDs, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load cost records: %w", err)
	}

	report := &BOMReport{
		BOMID:       bomID,
		TotalItems:  len(items),
		GeneratedAt: time.Now(),
	}

	byType := make(map[string]*TypeBreakdown)
	rootsWithRecord := 0
	for _, it := range items {
		rec, hasRec := records[it.ID]

		tb, ok := byType[it.ItemType]
		if !ok {
			tb = &TypeBreakdown{ItemType: it.ItemType}
			byType[it.ItemType] = tb
		}
		tb.ItemCount++
		if hasRec {
			tb.OwnCost += rec.OwnCost
			tb.TotalCost += rec.TotalCost
			tb.ExtendedCost += rec.ExtendedCost
			if rec.IsStale {
				report.StaleItems++
			}
		}

		if it.IsRoot() {
			report.RootItems++
			if hasRec {
				rootsWithRecord++
				report.GrandTotalCost += rec.TotalCost
				report.GrandSellingPrice += rec.SellingPrice
				report.AvgSGAPercentage += rec.SGAPercentage
				report.AvgProfitPercentage += rec.ProfitPercentage
			}
		}
	}

	// 利润率取根行项平均而非求和
	if rootsWithRecord > 0 {
		report.AvgSGAPercentage /= float64(rootsWithRecord)
		report.AvgProfitPercentage /= float64(rootsWithRecord)
	}

	for _, tb := range byType {
		report.ByItemType = append(report.ByItemType, *tb)
	}
	sort.Slice(report.ByItemType, func(i, j int) bool {
		return report.ByItemType[i].ItemType < report.ByItemType[j].ItemType
	})

	s.cache.Set(ctx, bomID, ownerID, report)
	return report, nil
}

// ListStaleItems 获取BOM下待重算的行项
func (s *ReportService) ListStaleItems(ctx context.Context, bomID, ownerID string) ([]StaleItem, error) {
	recs, err := s.recordRepo.ListStaleByBOM(ctx, bomID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list stale records: %w", err)
	}
	if len(recs) == 0 {
		return []StaleItem{}, nil
	}

	items, err := s.itemRepo.ListByBOM(ctx, bomID)
	if err != nil {
		return nil, fmt.Errorf("list bom items: %w", err)
	}
	names := make(map[string]entity.BOMItem, len(items))
	for _, it := range items {
		names[it.ID] = it
	}

	result := make([]StaleItem, 0, len(recs))
	for _, rec := range recs {
		it := names[rec.ItemID]
		result = append(result, StaleItem{
			ItemID:           rec.ItemID,
			Name:             it.Name,
			ItemType:         it.ItemType,
			LastCalculatedAt: rec.LastCalculatedAt,
		})
	}
	return result, nil
}

var reportExportHeaders = []string{
	"物料类型", "行项数", "自身成本", "总成本", "小计成本",
}

// ExportBOMReport 导出BOM成本报表为xlsx
func (s *ReportService) ExportBOMReport(ctx context.Context, bomID, ownerID string) (*excelize.File, string, error) {
	bom, err := s.itemRepo.FindBOMByID(ctx, bomID)
	if err != nil {
		return nil, "", fmt.Errorf("bom not found: %w", err)
	}

	report, err := s.GetBOMReport(ctx, bomID, ownerID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	sheet := "成本报表"
	f.SetSheetName("Sheet1", sheet)

	// 表头样式: 加粗
	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, h := range reportExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	for rowIdx, tb := range report.ByItemType {
		row := rowIdx + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), tb.ItemType)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), tb.ItemCount)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), tb.OwnCost)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), tb.TotalCost)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), tb.ExtendedCost)
	}

	// 底部汇总行（总计只含根行项，避免重复计数）
	summaryRow := len(report.ByItemType) + 3
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	f.SetCellValue(sheet, fmt.Sprintf("A%d", summaryRow), "汇总")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", summaryRow), fmt.Sprintf("总行项数: %d", report.TotalItems))
	f.SetCellValue(sheet, fmt.Sprintf("C%d", summaryRow), fmt.Sprintf("待重算: %d", report.StaleItems))
	f.SetCellValue(sheet, fmt.Sprintf("D%d", summaryRow), report.GrandTotalCost)
	f.SetCellValue(sheet, fmt.Sprintf("E%d", summaryRow), report.GrandSellingPrice)
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("E%d", summaryRow), summaryStyle)

	colWidths := []float64{16, 10, 14, 14, 14}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	filename := fmt.Sprintf("CostReport_%s_%s.xlsx", bom.Name, bom.Version)
	return f, filename, nil
}
