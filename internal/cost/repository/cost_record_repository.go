package repository

import (
	"context"
	"errors"
	"time"

	"github.com/abushanisro/mithran-sub001/internal/cost/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CostRecordRepository 成本记录仓库
type CostRecordRepository struct {
	db *gorm.DB
}

func NewCostRecordRepository(db *gorm.DB) *CostRecordRepository {
	return &CostRecordRepository{db: db}
}

// FindByItem 根据 (item_id, owner_id) 查找成本记录
func (r *CostRecordRepository) FindByItem(ctx context.Context, itemID, ownerID string) (*entity.CostRecord, error) {
	var rec entity.CostRecord
	err := r.db.WithContext(ctx).
		First(&rec, "item_id = ? AND owner_id = ?", itemID, ownerID).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &rec, nil
}

// GetOrCreate 查找成本记录，不存在则创建零值记录（幂等）
func (r *CostRecordRepository) GetOrCreate(ctx context.Context, itemID, ownerID string) (*entity.CostRecord, error) {
	rec, err := r.FindByItem(ctx, itemID, ownerID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	rec = &entity.CostRecord{
		ID:        uuid.New().String()[:32],
		ItemID:    itemID,
		OwnerID:   ownerID,
		IsStale:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		// 并发创建触发唯一索引冲突时回退为查找
		if existing, findErr := r.FindByItem(ctx, itemID, ownerID); findErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return rec, nil
}

// Update 全量更新成本记录，带版本号校验
// 版本不匹配返回 ErrStaleWrite，调用方决定重试还是上抛
func (r *CostRecordRepository) Update(ctx context.Context, rec *entity.CostRecord) error {
	res := r.db.WithContext(ctx).Model(&entity.CostRecord{}).
		Where("id = ? AND version = ?", rec.ID, rec.Version).
		Updates(map[string]interface{}{
			"raw_material_cost":        rec.RawMaterialCost,
			"process_cost":             rec.ProcessCost,
			"packaging_logistics_cost": rec.PackagingLogisticsCost,
			"procured_parts_cost":      rec.ProcuredPartsCost,
			"sga_percentage":           rec.SGAPercentage,
			"profit_percentage":        rec.ProfitPercentage,
			"own_cost":                 rec.OwnCost,
			"direct_children_cost":     rec.DirectChildrenCost,
			"total_cost":               rec.TotalCost,
			"unit_cost":                rec.UnitCost,
			"extended_cost":            rec.ExtendedCost,
			"selling_price":            rec.SellingPrice,
			"is_stale":                 rec.IsStale,
			"last_calculated_at":       rec.LastCalculatedAt,
			"version":                  rec.Version + 1,
			"updated_at":               time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleWrite
	}
	rec.Version++
	return nil
}

// MarkStale 标记成本记录为待重算
func (r *CostRecordRepository) MarkStale(ctx context.Context, itemID, ownerID string) error {
	return r.db.WithContext(ctx).Model(&entity.CostRecord{}).
		Where("item_id = ? AND owner_id = ?", itemID, ownerID).
		Updates(map[string]interface{}{"is_stale": true, "updated_at": time.Now()}).Error
}

// FindByItems 批量查找成本记录，返回 item_id → record 映射
func (r *CostRecordRepository) FindByItems(ctx context.Context, itemIDs []string, ownerID string) (map[string]entity.CostRecord, error) {
	result := make(map[string]entity.CostRecord, len(itemIDs))
	if len(itemIDs) == 0 {
		return result, nil
	}
	var recs []entity.CostRecord
	err := r.db.WithContext(ctx).
		Where("item_id IN ? AND owner_id = ?", itemIDs, ownerID).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		result[rec.ItemID] = rec
	}
	return result, nil
}

// ListStaleByBOM 获取BOM下所有待重算的行项成本记录
func (r *CostRecordRepository) ListStaleByBOM(ctx context.Context, bomID, ownerID string) ([]entity.CostRecord, error) {
	var recs []entity.CostRecord
	err := r.db.WithContext(ctx).Model(&entity.CostRecord{}).
		Joins("JOIN bom_items ON bom_items.id = cost_records.item_id").
		Where("bom_items.bom_id = ? AND cost_records.owner_id = ? AND cost_records.is_stale = ?", bomID, ownerID, true).
		Find(&recs).Error
	return recs, err
}
