package config

import (
	"fmt"
	"strings"
)

// dialect captures the per-backend differences in DDL and driver naming.
type dialect struct {
	name       string
	driverName string
	types      *strings.Replacer
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case "", "sqlite", "sqlite3":
		return dialect{
			name:       "sqlite",
			driverName: "sqlite",
			types: strings.NewReplacer(
				"{id}", "TEXT",
				"{str}", "TEXT",
				"{text}", "TEXT",
				"{bool}", "INTEGER",
				"{int}", "INTEGER",
				"{ts}", "DATETIME",
				"{engine}", "",
			),
		}, nil
	case "postgres", "postgresql", "pgx":
		return dialect{
			name:       "postgres",
			driverName: "pgx",
			types: strings.NewReplacer(
				"{id}", "TEXT",
				"{str}", "TEXT",
				"{text}", "TEXT",
				"{bool}", "BOOLEAN",
				"{int}", "BIGINT",
				"{ts}", "TIMESTAMPTZ",
				"{engine}", "",
			),
		}, nil
	case "mysql", "mariadb":
		return dialect{
			name:       "mysql",
			driverName: "mysql",
			types: strings.NewReplacer(
				"{id}", "VARCHAR(64)",
				"{str}", "VARCHAR(191)",
				"{text}", "TEXT",
				"{bool}", "BOOLEAN",
				"{int}", "BIGINT",
				"{ts}", "DATETIME(6)",
				"{engine}", " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4",
			),
		}, nil
	}
	return dialect{}, fmt.Errorf("unsupported database driver %q (use sqlite, postgres, or mysql)", driver)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id {id} PRIMARY KEY,
		name {str} NOT NULL,
		api_key_hash {str} NOT NULL UNIQUE,
		is_active {bool} NOT NULL,
		created_at {ts} NOT NULL,
		updated_at {ts} NOT NULL
	){engine}`,

	`CREATE TABLE IF NOT EXISTS plans (
		id {id} PRIMARY KEY,
		product_id {id} NOT NULL,
		name {str} NOT NULL,
		slug {str} NOT NULL UNIQUE,
		price {int} NOT NULL,
		features {text} NOT NULL,
		limits_json {text} NOT NULL,
		is_active {bool} NOT NULL,
		created_at {ts} NOT NULL,
		updated_at {ts} NOT NULL,
		FOREIGN KEY (product_id) REFERENCES products(id)
	){engine}`,

	`CREATE TABLE IF NOT EXISTS users (
		id {id} PRIMARY KEY,
		email {str} NOT NULL UNIQUE,
		name {str} NOT NULL,
		created_at {ts} NOT NULL,
		updated_at {ts} NOT NULL
	){engine}`,

	`CREATE TABLE IF NOT EXISTS payment_methods (
		id {id} PRIMARY KEY,
		slug {str} NOT NULL UNIQUE,
		name {str} NOT NULL,
		type {str} NOT NULL,
		provider {str},
		config {text},
		is_active {bool} NOT NULL,
		created_at {ts} NOT NULL,
		updated_at {ts} NOT NULL
	){engine}`,

	`CREATE TABLE IF NOT EXISTS product_payment_methods (
		product_id {id} NOT NULL,
		payment_method_id {id} NOT NULL,
		display_order {int} NOT NULL,
		is_default {bool} NOT NULL,
		PRIMARY KEY (product_id, payment_method_id),
		FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE,
		FOREIGN KEY (payment_method_id) REFERENCES payment_methods(id)
	){engine}`,

	`CREATE TABLE IF NOT EXISTS subscriptions (
		id {id} PRIMARY KEY,
		user_id {id} NOT NULL,
		plan_id {id} NOT NULL,
		product_id {id} NOT NULL,
		status {str} NOT NULL,
		provider {str} NOT NULL,
		payment_method_id {id},
		external_id {str},
		payment_proof_url {text},
		payment_note {text},
		start_date {ts},
		end_date {ts},
		created_at {ts} NOT NULL,
		updated_at {ts} NOT NULL,
		UNIQUE (user_id, product_id),
		FOREIGN KEY (user_id) REFERENCES users(id),
		FOREIGN KEY (plan_id) REFERENCES plans(id),
		FOREIGN KEY (product_id) REFERENCES products(id),
		FOREIGN KEY (payment_method_id) REFERENCES payment_methods(id)
	){engine}`,

	`CREATE TABLE IF NOT EXISTS admin_users (
		id {id} PRIMARY KEY,
		email {str} NOT NULL UNIQUE,
		password_hash {str} NOT NULL,
		name {str} NOT NULL,
		role {str} NOT NULL,
		is_active {bool} NOT NULL,
		last_login_at {ts},
		created_at {ts} NOT NULL,
		updated_at {ts} NOT NULL
	){engine}`,

	`CREATE INDEX idx_plans_product_id ON plans(product_id)`,
	`CREATE INDEX idx_subscriptions_status ON subscriptions(status)`,
	`CREATE INDEX idx_subscriptions_plan_id ON subscriptions(plan_id)`,
}

func (s *Store) migrate() error {
	for _, stmt := range schema {
		ddl := s.dialect.types.Replace(stmt)
		if _, err := s.db.Exec(ddl); err != nil {
			// Index creation is not idempotent on every backend; an
			// existing index is a no-op.
			if isAlreadyExists(err) {
				continue
			}
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, ddl)
		}
	}
	return nil
}

func isAlreadyExists(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate key name")
}
