package model

import (
	"database/sql"
	"time"
)

// Bar 表示一家酒吧及其点唱机目录
type Bar struct {
	ID             int64          `json:"id" gorm:"primaryKey"`
	Name           string         `json:"name" gorm:"size:255;not null"`
	Slug           string         `json:"slug" gorm:"size:255;uniqueIndex;not null"`
	Address        sql.NullString `json:"address" gorm:"size:512"`
	Description    sql.NullString `json:"description" gorm:"size:1024"`
	LogoURL        sql.NullString `json:"logoUrl" gorm:"size:512"`
	PrimaryColor   sql.NullString `json:"primaryColor" gorm:"size:32"`
	SecondaryColor sql.NullString `json:"secondaryColor" gorm:"size:32"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// BarManager 把用户和其管理的酒吧关联起来
type BarManager struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	BarID     int64     `json:"barId" gorm:"index;not null"`
	UserID    int64     `json:"userId" gorm:"index;not null"`
	CreatedAt time.Time `json:"createdAt"`
}
