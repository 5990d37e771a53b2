package model

import "time"

type User struct {
	ID           uint      `gorm:"column:id;primaryKey;autoIncrement" bson:"-" json:"-"`
	Username     string    `gorm:"column:username;size:64;not null;uniqueIndex:uk_users_username" bson:"_id" json:"username"`
	PasswordHash string    `gorm:"column:password_hash;size:255;not null" bson:"password_hash" json:"-"`
	CreatedAt    time.Time `gorm:"column:created_at;not null" bson:"created_at" json:"created_at"`
}

func (User) TableName() string { return "users" }
