package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/rndc-gateway/internal/repository"
	"gorm.io/gorm"
)

func createBatchesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_rndc_batches",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.BatchModel{}); err != nil {
				return err
			}
			return execAll(tx, []string{
				`ALTER TABLE rndc_batches ADD CONSTRAINT chk_rndc_batches_counts CHECK (success_count + error_count + pending_count = total_records)`,
				`CREATE INDEX IF NOT EXISTS idx_rndc_batches_kind_status_created ON rndc_batches (kind, status, created_at DESC)`,
				`CREATE INDEX IF NOT EXISTS idx_rndc_batches_stale ON rndc_batches (updated_at) WHERE status = 'processing'`,
			})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.BatchModel{})
		},
	}
}
