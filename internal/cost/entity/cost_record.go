package entity

import "time"

// CostRecord 行项成本记录（item_id+owner_id 唯一）
// 输入字段由上游流程写入，派生字段只由成本聚合器计算
type CostRecord struct {
	ID      string `json:"id" gorm:"primaryKey;size:32"`
	ItemID  string `json:"item_id" gorm:"size:32;not null;uniqueIndex:idx_cost_records_item_owner"`
	OwnerID string `json:"owner_id" gorm:"size:32;not null;uniqueIndex:idx_cost_records_item_owner"`

	// 成本输入
	RawMaterialCost        float64 `json:"raw_material_cost" gorm:"type:numeric(15,4);not null;default:0"`
	ProcessCost            float64 `json:"process_cost" gorm:"type:numeric(15,4);not null;default:0"`
	PackagingLogisticsCost float64 `json:"packaging_logistics_cost" gorm:"type:numeric(15,4);not null;default:0"`
	ProcuredPartsCost      float64 `json:"procured_parts_cost" gorm:"type:numeric(15,4);not null;default:0"`

	// 利润率输入（百分比）
	SGAPercentage    float64 `json:"sga_percentage" gorm:"type:numeric(8,4);not null;default:0"`
	ProfitPercentage float64 `json:"profit_percentage" gorm:"type:numeric(8,4);not null;default:0"`

	// 派生字段
	OwnCost            float64 `json:"own_cost" gorm:"type:numeric(15,4);not null;default:0"`
	DirectChildrenCost float64 `json:"direct_children_cost" gorm:"type:numeric(15,4);not null;default:0"`
	TotalCost          float64 `json:"total_cost" gorm:"type:numeric(15,4);not null;default:0"`
	UnitCost           float64 `json:"unit_cost" gorm:"type:numeric(15,4);not null;default:0"`
	ExtendedCost       float64 `json:"extended_cost" gorm:"type:numeric(15,4);not null;default:0"`
	SellingPrice       float64 `json:"selling_price" gorm:"type:numeric(15,4);not null;default:0"`

	IsStale          bool       `json:"is_stale" gorm:"not null;default:true"`
	LastCalculatedAt *time.Time `json:"last_calculated_at,omitempty"`

	// 乐观锁版本号，防止并发重算丢失更新
	Version int64 `json:"version" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CostRecord) TableName() string {
	return "cost_records"
}

// PackagingCostEntry 包装物流成本条目（仅active条目参与聚合）
type PackagingCostEntry struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	ItemID      string    `json:"item_id" gorm:"size:32;not null;index"`
	OwnerID     string    `json:"owner_id" gorm:"size:32;not null;index"`
	Description string    `json:"description" gorm:"size:256"`
	TotalCost   float64   `json:"total_cost" gorm:"type:numeric(15,4);not null;default:0"`
	IsActive    bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (PackagingCostEntry) TableName() string {
	return "packaging_cost_entries"
}

// ProcuredPartEntry 外购件成本条目（仅active条目参与聚合）
type ProcuredPartEntry struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	ItemID      string    `json:"item_id" gorm:"size:32;not null;index"`
	OwnerID     string    `json:"owner_id" gorm:"size:32;not null;index"`
	Description string    `json:"description" gorm:"size:256"`
	TotalCost   float64   `json:"total_cost" gorm:"type:numeric(15,4);not null;default:0"`
	IsActive    bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (ProcuredPartEntry) TableName() string {
	return "procured_part_entries"
}
