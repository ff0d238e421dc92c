package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/rndc-gateway/internal/repository"
	"gorm.io/gorm"
)

func createQueriesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_rndc_queries",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.QueryModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_rndc_queries_created ON rndc_queries (created_at DESC)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.QueryModel{})
		},
	}
}
