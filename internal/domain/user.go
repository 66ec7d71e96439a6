package domain

import "time"

// User is the identity-provider-owned user record. Rows are created on
// signup by the identity service; this service only reads them.
type User struct {
	ID        string    `json:"id" gorm:"type:varchar(255);primary_key"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	Email     string    `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`
	Image     string    `json:"image" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for User
func (User) TableName() string {
	return "users"
}
