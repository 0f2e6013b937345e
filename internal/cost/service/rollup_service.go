package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abushanisro/mithran-sub001/internal/cost/entity"
	"github.com/abushanisro/mithran-sub001/internal/cost/repository"
)

// RollupService 成本汇总引擎：单项重算、向上传播、整BOM自底向上重算
type RollupService struct {
	itemRepo   *repository.ItemRepository
	recordRepo *repository.CostRecordRepository
	entryRepo  *repository.CostEntryRepository
	cache      *ReportCache
}

func NewRollupService(itemRepo *repository.ItemRepository, recordRepo *repository.CostRecordRepository, entryRepo *repository.CostEntryRepository, cache *ReportCache) *RollupService {
	return &RollupService{
		itemRepo:   itemRepo,
		recordRepo: recordRepo,
		entryRepo:  entryRepo,
		cache:      cache,
	}
}

// Recalculate 重算单个行项的派生成本字段
// 子项的totalCost按当前库中值读取，不在此处重算；调用顺序由上层保证
func (s *RollupService) Recalculate(ctx context.Context, itemID, ownerID string) (*entity.CostRecord, error) {
	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("item not found: %w", err)
	}

	rec, err := s.recordRepo.GetOrCreate(ctx, itemID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get or create cost record: %w", err)
	}

	children, err := s.itemRepo.ListChildren(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}

	childIDs := make([]string, 0, len(children))
	for _, c := range children {
		childIDs = append(childIDs, c.ID)
	}
	childRecords, err := s.recordRepo.FindByItems(ctx, childIDs, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load child cost records: %w", err)
	}

	// 包装物流、外购件成本来自active条目之和
	packaging, err := s.entryRepo.ListActivePackaging(ctx, itemID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list packaging entries: %w", err)
	}
	procured, err := s.entryRepo.ListActiveProcured(ctx, itemID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list procured entries: %w", err)
	}
	rec.PackagingLogisticsCost = 0
	for _, e := range packaging {
		rec.PackagingLogisticsCost += e.TotalCost
	}
	rec.ProcuredPartsCost = 0
	for _, e := range procured {
		rec.ProcuredPartsCost += e.TotalCost
	}

	applyCostFormulas(rec, item.Quantity, childrenCostOf(children, childRecords))

	now := time.Now()
	rec.IsStale = false
	rec.LastCalculatedAt = &now

	if err := s.recordRepo.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist cost record: %w", err)
	}

	s.cache.Invalidate(ctx, item.BOMID, ownerID)
	return rec, nil
}

// PropagateToAncestors 从变更行项逐级向上重算到根
// 每个祖先都重算（祖先的totalCost传递依赖变更的后代），不做增量判断
func (s *RollupService) PropagateToAncestors(ctx context.Context, itemID, ownerID string) error {
	seen := map[string]bool{itemID: true}

	current, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		return fmt.Errorf("item not found: %w", err)
	}

	for depth := 0; !current.IsRoot(); depth++ {
		if depth >= maxHierarchyDepth {
			return ErrCyclicHierarchy
		}

		parentID := *current.ParentItemID
		if seen[parentID] {
			return ErrCyclicHierarchy
		}
		seen[parentID] = true

		parent, err := s.itemRepo.FindByID(ctx, parentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				// 父引用悬空：当前行项即为实际的根
				return nil
			}
			return fmt.Errorf("load parent %s: %w", parentID, err)
		}

		if _, err := s.Recalculate(ctx, parent.ID, ownerID); err != nil {
			return fmt.Errorf("recalculate ancestor %s: %w", parent.ID, err)
		}
		current = parent
	}
	return nil
}

// RecalculateAll 整BOM自底向上重算
// 后序遍历保证任何行项重算时其全部后代已在本轮算完；
// 返回成功重算的行项数，中途失败立即中止，不跳过继续
func (s *RollupService) RecalculateAll(ctx context.Context, bomID, ownerID string) (int, error) {
	items, err := s.itemRepo.ListByBOM(ctx, bomID)
	if err != nil {
		return 0, fmt.Errorf("list bom items: %w", err)
	}
	if len(items) == 0 {
		return 0, nil
	}

	order, err := postOrder(items)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, id := range order {
		if _, err := s.Recalculate(ctx, id, ownerID); err != nil {
			return processed, fmt.Errorf("recalculate item %s: %w", id, err)
		}
		processed++
	}

	s.cache.Invalidate(ctx, bomID, ownerID)
	return processed, nil
}
