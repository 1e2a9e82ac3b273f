package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/webhook-relay/internal/repository"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		createSubscriptionsTable(),
		createWebhookDeliveriesTable(),
		createDeliveryAttemptsTable(),
	})

	return m.Migrate()
}

func createSubscriptionsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_subscriptions",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.SubscriptionModel{}); err != nil {
				return err
			}
			statements := []string{
				`ALTER TABLE subscriptions ADD COLUMN IF NOT EXISTS search_vector tsvector`,
				`CREATE INDEX IF NOT EXISTS idx_subscriptions_name_lower ON subscriptions (lower(name))`,
				`CREATE INDEX IF NOT EXISTS idx_subscriptions_created_at ON subscriptions (created_at)`,
				`CREATE INDEX IF NOT EXISTS idx_subscriptions_search_vector ON subscriptions USING gin (search_vector)`,
			}
			for _, sql := range statements {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.SubscriptionModel{})
		},
	}
}

func createWebhookDeliveriesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_webhook_deliveries",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.DeliveryModel{}); err != nil {
				return err
			}
			statements := []string{
				`ALTER TABLE webhook_deliveries
					ADD CONSTRAINT fk_webhook_deliveries_subscription
					FOREIGN KEY (subscription_id) REFERENCES subscriptions (id) ON DELETE CASCADE`,
				`CREATE INDEX IF NOT EXISTS idx_webhook_deliveries_subscription_id ON webhook_deliveries (subscription_id)`,
				`CREATE INDEX IF NOT EXISTS idx_webhook_deliveries_status ON webhook_deliveries (status)`,
				`CREATE INDEX IF NOT EXISTS idx_webhook_deliveries_created_at ON webhook_deliveries (created_at)`,
				`CREATE INDEX IF NOT EXISTS idx_webhook_deliveries_next_retry ON webhook_deliveries (next_retry_at) WHERE status = 'retrying'`,
			}
			for _, sql := range statements {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.DeliveryModel{})
		},
	}
}

func createDeliveryAttemptsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_delivery_attempts",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.DeliveryAttemptModel{}); err != nil {
				return err
			}
			statements := []string{
				`ALTER TABLE delivery_attempts
					ADD CONSTRAINT fk_delivery_attempts_delivery
					FOREIGN KEY (delivery_id) REFERENCES webhook_deliveries (id) ON DELETE CASCADE`,
				`CREATE INDEX IF NOT EXISTS idx_delivery_attempts_delivery_id ON delivery_attempts (delivery_id)`,
				`CREATE INDEX IF NOT EXISTS idx_delivery_attempts_created_at ON delivery_attempts (created_at)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_delivery_attempts_delivery_number ON delivery_attempts (delivery_id, attempt_number)`,
			}
			for _, sql := range statements {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.DeliveryAttemptModel{})
		},
	}
}
