package postgres

import (
	"context"

	"storefront/internal/domain/entity"
	"storefront/internal/domain/repository"
	"storefront/internal/infra/persistence/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// tenantDirectory reads the tenants table of the master database.
type tenantDirectory struct {
	db *gorm.DB
}

// NewTenantDirectory returns the directory backed by the master database.
func NewTenantDirectory(db *gorm.DB) repository.TenantDirectory {
	return &tenantDirectory{db: db}
}

// FindBySubdomain looks up the database assigned to subdomain.
func (d *tenantDirectory) FindBySubdomain(ctx context.Context, subdomain string) (*entity.Tenant, error) {
	var tenantM model.TenantModel
	err := d.db.WithContext(ctx).
		Where("subdomain = ?", subdomain).
		Take(&tenantM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrTenantNotFound
		}

		return nil, errors.Wrap(err, "failed to query tenant directory")
	}

	return &entity.Tenant{
		Subdomain: tenantM.Subdomain,
		Database:  tenantM.DBName,
	}, nil
}
