package model

import "gorm.io/gorm"

// Location 工作地点表，对应 locations
type Location struct {
	LocationID     string `gorm:"type:uuid;primaryKey"                json:"location_id"`
	OrganizationID string `gorm:"type:uuid;not null"                  json:"organization_id"`
	Name           string `gorm:"type:varchar(100);not null"          json:"name"`
	Address        string `gorm:"type:varchar(200)"                   json:"address,omitempty"`
	IsActive       bool   `gorm:"not null;default:true"               json:"is_active"`
	SoftDeleteModel
}

// TableName 指定表名
func (Location) TableName() string { return "locations" }

func (l *Location) BeforeCreate(*gorm.DB) error {
	ensureID(&l.LocationID)
	return nil
}
