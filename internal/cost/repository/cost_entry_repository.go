package repository

import (
	"context"
	"time"

	"github.com/abushanisro/mithran-sub001/internal/cost/entity"
	"gorm.io/gorm"
)

// CostEntryRepository 包装物流/外购件成本条目仓库
type CostEntryRepository struct {
	db *gorm.DB
}

func NewCostEntryRepository(db *gorm.DB) *CostEntryRepository {
	return &CostEntryRepository{db: db}
}

// ListActivePackaging 获取行项的active包装物流条目
func (r *CostEntryRepository) ListActivePackaging(ctx context.Context, itemID, ownerID string) ([]entity.PackagingCostEntry, error) {
	var entries []entity.PackagingCostEntry
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND owner_id = ? AND is_active = ?", itemID, ownerID, true).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}

// ListActiveProcured 获取行项的active外购件条目
func (r *CostEntryRepository) ListActiveProcured(ctx context.Context, itemID, ownerID string) ([]entity.ProcuredPartEntry, error) {
	var entries []entity.ProcuredPartEntry
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND owner_id = ? AND is_active = ?", itemID, ownerID, true).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}

// CreatePackaging 创建包装物流条目
func (r *CostEntryRepository) CreatePackaging(ctx context.Context, e *entity.PackagingCostEntry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

// CreateProcured 创建外购件条目
func (r *CostEntryRepository) CreateProcured(ctx context.Context, e *entity.ProcuredPartEntry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

// DeactivatePackaging 停用包装物流条目（后续聚合不再计入）
// 已停用的条目再次停用视同不存在
func (r *CostEntryRepository) DeactivatePackaging(ctx context.Context, id, ownerID string) error {
	res := r.db.WithContext(ctx).Model(&entity.PackagingCostEntry{}).
		Where("id = ? AND owner_id = ? AND is_active = ?", id, ownerID, true).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeactivateProcured 停用外购件条目
func (r *CostEntryRepository) DeactivateProcured(ctx context.Context, id, ownerID string) error {
	res := r.db.WithContext(ctx).Model(&entity.ProcuredPartEntry{}).
		Where("id = ? AND owner_id = ? AND is_active = ?", id, ownerID, true).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindPackagingByID 根据ID查找包装物流条目
func (r *CostEntryRepository) FindPackagingByID(ctx context.Context, id string) (*entity.PackagingCostEntry, error) {
	var e entity.PackagingCostEntry
	if err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &e, nil
}

// FindProcuredByID 根据ID查找外购件条目
func (r *CostEntryRepository) FindProcuredByID(ctx context.Context, id string) (*entity.ProcuredPartEntry, error) {
	var e entity.ProcuredPartEntry
	if err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &e, nil
}
