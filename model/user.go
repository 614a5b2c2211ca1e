package model

import "time"

// user_roles 表中的角色取值
const (
	RoleAdmin      = "admin"
	RoleBarManager = "bar_manager"
)

// User 表示一个登录账号（管理员或酒吧经理）
type User struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"size:128;uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"size:255;uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserRole 给用户授予一个角色
type UserRole struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	UserID    int64     `json:"userId" gorm:"index;not null"`
	Role      string    `json:"role" gorm:"size:32;not null"`
	CreatedAt time.Time `json:"createdAt"`
}
