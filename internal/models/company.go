package models

// Company is a road-repair contractor a report can be assigned to via its
// detail version.
type Company struct {
	ID   int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"not null;size:255;uniqueIndex" json:"name"`
}

func (Company) TableName() string {
	return "companies"
}
