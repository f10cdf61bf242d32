package database

import "Tuner/internal/models"

var _ models.DatabaseHandler = (*SQLHandler)(nil)

// Statements are kept portable between Postgres and SQLite.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS brands (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		logo TEXT NOT NULL DEFAULT ''
	);`,
	`CREATE TABLE IF NOT EXISTS models (
		id BIGINT PRIMARY KEY,
		brand_id BIGINT NOT NULL REFERENCES brands (id),
		name TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS chassis_types (
		id BIGINT PRIMARY KEY,
		model_id BIGINT NOT NULL REFERENCES models (id),
		name TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS engines (
		id BIGINT PRIMARY KEY,
		type_id BIGINT NOT NULL REFERENCES chassis_types (id),
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		engine_type TEXT NOT NULL DEFAULT ''
	);`,
	`CREATE TABLE IF NOT EXISTS stages (
		id BIGINT PRIMARY KEY,
		engine_id BIGINT NOT NULL REFERENCES engines (id),
		stage_name TEXT NOT NULL,
		stock_hp INTEGER NOT NULL,
		stock_nm INTEGER NOT NULL,
		tuned_hp INTEGER NOT NULL,
		tuned_nm INTEGER NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		ecu_notes TEXT NOT NULL DEFAULT '',
		ecu_unlock BOOLEAN NOT NULL DEFAULT FALSE,
		cpc_upgrade BOOLEAN NOT NULL DEFAULT FALSE
	);`,
}
