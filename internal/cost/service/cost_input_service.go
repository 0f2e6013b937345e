package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abushanisro/mithran-sub001/internal/cost/entity"
	"github.com/abushanisro/mithran-sub001/internal/cost/repository"
	"github.com/google/uuid"
)

// ErrInvalidInput 成本输入校验失败（负数等）
var ErrInvalidInput = errors.New("invalid cost input")

// UpdateCostInputsRequest 成本输入更新请求，nil字段保持不变
type UpdateCostInputsRequest struct {
	RawMaterialCost  *float64 `json:"raw_material_cost"`
	ProcessCost      *float64 `json:"process_cost"`
	SGAPercentage    *float64 `json:"sga_percentage"`
	ProfitPercentage *float64 `json:"profit_percentage"`
}

// CostEntryRequest 成本条目创建请求
type CostEntryRequest struct {
	Description string  `json:"description"`
	TotalCost   float64 `json:"total_cost" binding:"required"`
}

// CostInputService 成本输入变更：写输入、打stale标记、触发自身和祖先重算
type CostInputService struct {
	itemRepo   *repository.ItemRepository
	recordRepo *repository.CostRecordRepository
	entryRepo  *repository.CostEntryRepository
	rollup     *RollupService
}

func NewCostInputService(itemRepo *repository.ItemRepository, recordRepo *repository.CostRecordRepository, entryRepo *repository.CostEntryRepository, rollup *RollupService) *CostInputService {
	return &CostInputService{
		itemRepo:   itemRepo,
		recordRepo: recordRepo,
		entryRepo:  entryRepo,
		rollup:     rollup,
	}
}

// UpdateCostInputs 更新行项的直接成本输入和利润率
func (s *CostInputService) UpdateCostInputs(ctx context.Context, itemID, ownerID string, req *UpdateCostInputsRequest) (*entity.CostRecord, error) {
	for name, v := range map[string]*float64{
		"raw_material_cost": req.RawMaterialCost,
		"process_cost":      req.ProcessCost,
		"sga_percentage":    req.SGAPercentage,
		"profit_percentage": req.ProfitPercentage,
	} {
		if v != nil && *v < 0 {
			return nil, fmt.Errorf("%w: %s must be non-negative", ErrInvalidInput, name)
		}
	}

	if _, err := s.itemRepo.FindByID(ctx, itemID); err != nil {
		return nil, fmt.Errorf("item not found: %w", err)
	}

	rec, err := s.recordRepo.GetOrCreate(ctx, itemID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get or create cost record: %w", err)
	}

	if req.RawMaterialCost != nil {
		rec.RawMaterialCost = *req.RawMaterialCost
	}
	if req.ProcessCost != nil {
		rec.ProcessCost = *req.ProcessCost
	}
	if req.SGAPercentage != nil {
		rec.SGAPercentage = *req.SGAPercentage
	}
	if req.ProfitPercentage != nil {
		rec.ProfitPercentage = *req.ProfitPercentage
	}
	rec.IsStale = true

	if err := s.recordRepo.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist cost inputs: %w", err)
	}

	return s.recalcAndPropagate(ctx, itemID, ownerID)
}

// AddPackagingEntry 添加包装物流成本条目
func (s *CostInputService) AddPackagingEntry(ctx context.Context, itemID, ownerID string, req *CostEntryRequest) (*entity.PackagingCostEntry, error) {
	if req.TotalCost < 0 {
		return nil, fmt.Errorf("%w: total_cost must be non-negative", ErrInvalidInput)
	}
	if _, err := s.itemRepo.FindByID(ctx, itemID); err != nil {
		return nil, fmt.Errorf("item not found: %w", err)
	}

	now := time.Now()
	entry := &entity.PackagingCostEntry{
		ID:          uuid.New().String()[:32],
		ItemID:      itemID,
		OwnerID:     ownerID,
		Description: req.Description,
		TotalCost:   req.TotalCost,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.entryRepo.CreatePackaging(ctx, entry); err != nil {
		return nil, fmt.Errorf("create packaging entry: %w", err)
	}

	if _, err := s.recalcAndPropagate(ctx, itemID, ownerID); err != nil {
		return nil, err
	}
	return entry, nil
}

// AddProcuredEntry 添加外购件成本条目
func (s *CostInputService) AddProcuredEntry(ctx context.Context, itemID, ownerID string, req *CostEntryRequest) (*entity.ProcuredPartEntry, error) {
	if req.TotalCost < 0 {
		return nil, fmt.Errorf("%w: total_cost must be non-negative", ErrInvalidInput)
	}
	if _, err := s.itemRepo.FindByID(ctx, itemID); err != nil {
		return nil, fmt.Errorf("item not found: %w", err)
	}

	now := time.Now()
	entry := &entity.ProcuredPartEntry{
		ID:          uuid.New().String()[:32],
		ItemID:      itemID,
		OwnerID:     ownerID,
		Description: req.Description,
		TotalCost:   req.TotalCost,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.entryRepo.CreateProcured(ctx, entry); err != nil {
		return nil, fmt.Errorf("create procured entry: %w", err)
	}

	if _, err := s.recalcAndPropagate(ctx, itemID, ownerID); err != nil {
		return nil, err
	}
	return entry, nil
}

// DeactivatePackagingEntry 停用包装物流条目并触发重算
func (s *CostInputService) DeactivatePackagingEntry(ctx context.Context, entryID, ownerID string) error {
	entry, err := s.entryRepo.FindPackagingByID(ctx, entryID)
	if err != nil {
		return fmt.Errorf("entry not found: %w", err)
	}
	if err := s.entryRepo.DeactivatePackaging(ctx, entryID, ownerID); err != nil {
		return fmt.Errorf("deactivate packaging entry: %w", err)
	}
	_, err = s.recalcAndPropagate(ctx, entry.ItemID, ownerID)
	return err
}

// DeactivateProcuredEntry 停用外购件条目并触发重算
func (s *CostInputService) DeactivateProcuredEntry(ctx context.Context, entryID, ownerID string) error {
	entry, err := s.entryRepo.FindProcuredByID(ctx, entryID)
	if err != nil {
		return fmt.Errorf("entry not found: %w", err)
	}
	if err := s.entryRepo.DeactivateProcured(ctx, entryID, ownerID); err != nil {
		return fmt.Errorf("deactivate procured entry: %w", err)
	}
	_, err = s.recalcAndPropagate(ctx, entry.ItemID, ownerID)
	return err
}

// recalcAndPropagate 输入变更后的标准流程：先重算自身，再逐级重算祖先
func (s *CostInputService) recalcAndPropagate(ctx context.Context, itemID, ownerID string) (*entity.CostRecord, error) {
	rec, err := s.rollup.Recalculate(ctx, itemID, ownerID)
	if err != nil {
		return nil, err
	}
	if err := s.rollup.PropagateToAncestors(ctx, itemID, ownerID); err != nil {
		return nil, err
	}
	return rec, nil
}
