package repository

import (
	"context"

	"github.com/abushanisro/mithran-sub001/internal/cost/entity"
	"gorm.io/gorm"
)

// ItemRepository BOM行项只读仓库（行项树由BOM管理模块维护）
type ItemRepository struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func (r *ItemRepository) DB() *gorm.DB {
	return r.db
}

// FindByID 根据ID查找行项
func (r *ItemRepository) FindByID(ctx context.Context, id string) (*entity.BOMItem, error) {
	var item entity.BOMItem
	err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &item, nil
}

// ListChildren 获取直接子项
func (r *ItemRepository) ListChildren(ctx context.Context, parentID string) ([]entity.BOMItem, error) {
	var items []entity.BOMItem
	err := r.db.WithContext(ctx).
		Where("parent_item_id = ?", parentID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// ListByBOM 获取BOM的全部行项
func (r *ItemRepository) ListByBOM(ctx context.Context, bomID string) ([]entity.BOMItem, error) {
	var items []entity.BOMItem
	err := r.db.WithContext(ctx).
		Where("bom_id = ?", bomID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// FindBOMByID 根据ID查找BOM
func (r *ItemRepository) FindBOMByID(ctx context.Context, id string) (*entity.BOM, error) {
	var bom entity.BOM
	err := r.db.WithContext(ctx).First(&bom, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &bom, nil
}
