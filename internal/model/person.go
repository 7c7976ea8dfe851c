package model

import "time"

// Person 账号主体，Graph Store 中以同一 id 镜像为 PERSON 节点
type Person struct {
	ID        uint64 `gorm:"primaryKey"`
	FirstName string `gorm:"size:64;not null"`
	LastName  string `gorm:"size:64;not null"`
	Email     string `gorm:"uniqueIndex;size:128;not null"`
	Password  string `gorm:"size:255;not null" json:"-"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Person) TableName() string { return "person" }
