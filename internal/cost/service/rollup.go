package service

import (
	"errors"

	"github.com/abushanisro/mithran-sub001/internal/cost/entity"
)

var (
	// ErrCyclicHierarchy 行项父子关系成环（或超过最大层级深度）
	ErrCyclicHierarchy = errors.New("cyclic item hierarchy detected")
)

// maxHierarchyDepth 向上回溯的最大层级，超过视为成环
const maxHierarchyDepth = 64

// applyCostFormulas 按成本公式重算派生字段
// ownCost            = raw + process + packaging + procured
// totalCost          = ownCost + directChildrenCost
// unitCost           = totalCost
// extendedCost       = totalCost * 本行项数量
// sellingPrice       = totalCost * (1+sga%) * (1+profit%)
func applyCostFormulas(rec *entity.CostRecord, quantity, directChildrenCost float64) {
	rec.OwnCost = rec.RawMaterialCost + rec.ProcessCost + rec.PackagingLogisticsCost + rec.ProcuredPartsCost
	rec.DirectChildrenCost = directChildrenCost
	rec.TotalCost = rec.OwnCost + rec.DirectChildrenCost
	rec.UnitCost = rec.TotalCost
	rec.ExtendedCost = rec.TotalCost * quantity
	rec.SellingPrice = rec.TotalCost * (1 + rec.SGAPercentage/100) * (1 + rec.ProfitPercentage/100)
}

// childrenCostOf 直接子项成本加权和 Σ totalCost(child) * quantity(child)
// 子项没有成本记录时按0计
func childrenCostOf(children []entity.BOMItem, records map[string]entity.CostRecord) float64 {
	var sum float64
	for _, child := range children {
		if rec, ok := records[child.ID]; ok {
			sum += rec.TotalCost * child.Quantity
		}
	}
	return sum
}

// postOrder 计算整棵BOM的后序遍历序列：任何行项都排在其全部后代之后。
// 父引用悬空的行项视为根，保证每个行项恰好访问一次；
// 遍历结束仍未访问到的行项只能处于环中，返回 ErrCyclicHierarchy。
func postOrder(items []entity.BOMItem) ([]string, error) {
	itemSet := make(map[string]bool, len(items))
	for _, it := range items {
		itemSet[it.ID] = true
	}

	children := make(map[string][]string, len(items))
	var roots []string
	for _, it := range items {
		if it.IsRoot() || !itemSet[*it.ParentItemID] {
			roots = append(roots, it.ID)
			continue
		}
		pid := *it.ParentItemID
		children[pid] = append(children[pid], it.ID)
	}

	type frame struct {
		id       string
		expanded bool
	}

	order := make([]string, 0, len(items))
	visited := make(map[string]bool, len(items))
	var stack []frame
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{id: roots[i]})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.expanded {
			order = append(order, f.id)
			continue
		}
		if visited[f.id] {
			continue
		}
		visited[f.id] = true

		stack = append(stack, frame{id: f.id, expanded: true})
		kids := children[f.id]
		for i := len(kids) - 1; i >= 0; i-- {
			if !visited[kids[i]] {
				stack = append(stack, frame{id: kids[i]})
			}
		}
	}

	if len(order) != len(items) {
		return nil, ErrCyclicHierarchy
	}
	return order, nil
}
