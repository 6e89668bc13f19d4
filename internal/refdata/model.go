package refdata

import "time"

// 基础参照数据：按键查询的简单档案，无生命周期逻辑。

// Location 位置/场所（校区、楼栋、房间）。
type Location struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Name      string    `gorm:"uniqueIndex;size:128;not null"`
	Campus    string    `gorm:"size:64"`
	Address   string    `gorm:"size:255"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Brand 品牌档案。
type Brand struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Name      string    `gorm:"uniqueIndex;size:128;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Role 角色目录。核心流程的能力判断用固定角色名（见 identity 包），
// 目录本身只是给管理界面维护用的档案。
type Role struct {
	ID          string    `gorm:"primaryKey;size:36"`
	Name        string    `gorm:"uniqueIndex;size:64;not null"`
	Description string    `gorm:"size:255"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}
