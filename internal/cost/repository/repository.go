package repository

import (
	"errors"

	"gorm.io/gorm"
)

// 错误定义
var (
	ErrNotFound   = errors.New("record not found")
	ErrStaleWrite = errors.New("cost record was modified concurrently")
)

// Repositories 仓库集合
type Repositories struct {
	Item       *ItemRepository
	CostRecord *CostRecordRepository
	CostEntry  *CostEntryRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Item:       NewItemRepository(db),
		CostRecord: NewCostRecordRepository(db),
		CostEntry:  NewCostEntryRepository(db),
	}
}

// translateError gorm错误转换为仓库错误
func translateError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
