// Package model holds the GORM persistence models for the master and tenant databases.
package model

// TenantModel mirrors the 'tenants' table of the master database.
type TenantModel struct {
	Subdomain string `gorm:"type:varchar(63);primaryKey"`
	DBName    string `gorm:"column:db_name;type:varchar(63);not null"`
}

// TableName explicitly sets the table name for GORM.
func (TenantModel) TableName() string {
	return "tenants"
}
