package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/rndc-gateway/internal/repository"
	"gorm.io/gorm"
)

func createSubmissionsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_rndc_submissions",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.SubmissionModel{}); err != nil {
				return err
			}
			return execAll(tx, []string{
				`ALTER TABLE rndc_submissions ADD CONSTRAINT fk_rndc_submissions_batch FOREIGN KEY (batch_id) REFERENCES rndc_batches (id) ON DELETE CASCADE`,
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_rndc_submissions_batch_sequence ON rndc_submissions (batch_id, sequence)`,
				`CREATE INDEX IF NOT EXISTS idx_rndc_submissions_reference ON rndc_submissions (kind, reference)`,
			})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.SubmissionModel{})
		},
	}
}
