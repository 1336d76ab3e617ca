package models

import "gorm.io/gorm"

// All lists every table the service owns, in dependency order. Used by
// sqlite auto-migration in dev and tests; Postgres uses goose migrations.
func All() []any {
	return []any{
		&Load{},
		&Bid{},
		&Driver{},
		&LocationSample{},
		&LoadLocation{},
		&RouteTracking{},
		&RouteStop{},
		&Invoice{},
		&Notification{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}

// PostSchemaStatements are indexes gorm tags cannot express.
var PostSchemaStatements = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_bids_accepted_per_load ON bids (load_id) WHERE status = 'accepted'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_outbox_events_event_aggregate ON outbox_events (event_type, aggregate_type, aggregate_id) WHERE event_type = 'invoice_issued'`,
}

// AutoMigrate creates the schema from the model tags and applies
// PostSchemaStatements.
func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(All()...); err != nil {
		return err
	}
	for _, stmt := range PostSchemaStatements {
		if err := conn.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
