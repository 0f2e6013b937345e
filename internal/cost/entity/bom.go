package entity

import "time"

// BOM 成本核算对象（一个产品的物料清单）
type BOM struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	ProjectID string    `json:"project_id" gorm:"size:32;not null;index"`
	Name      string    `json:"name" gorm:"size:128;not null"`
	Version   string    `json:"version" gorm:"size:16;not null;default:v1.0"`
	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Items []BOMItem `json:"items,omitempty" gorm:"foreignKey:BOMID"`
}

func (BOM) TableName() string {
	return "boms"
}

// 物料类型
const (
	ItemTypeAssembly    = "assembly"
	ItemTypeSubAssembly = "sub_assembly"
	ItemTypePart        = "part"
)

// BOMItem BOM层级行项（parent_item_id为空表示顶层总成）
// 成本引擎只读：行项的增删改由BOM管理模块负责
type BOMItem struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	BOMID        string    `json:"bom_id" gorm:"size:32;not null;index"`
	ParentItemID *string   `json:"parent_item_id,omitempty" gorm:"size:32;index"`
	ItemType     string    `json:"item_type" gorm:"size:16;not null;default:part"`
	Name         string    `json:"name" gorm:"size:128;not null"`
	Quantity     float64   `json:"quantity" gorm:"type:numeric(15,4);not null;default:1"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relations
	Children []BOMItem `json:"children,omitempty" gorm:"foreignKey:ParentItemID"`
}

func (BOMItem) TableName() string {
	return "bom_items"
}

// IsRoot 是否顶层行项
func (i *BOMItem) IsRoot() bool {
	return i.ParentItemID == nil || *i.ParentItemID == ""
}
