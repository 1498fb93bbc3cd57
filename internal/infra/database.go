package infra

import (
	"fmt"

	"venpos/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate
// for all models and applies the idempotent SQL objects GORM cannot express
// (sequences, partial indexes).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates / updates the schema. Also used by integration tests
// against a throwaway container.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Usuario{},
		&model.Cliente{},
		&model.Producto{},
		&model.MovimientoStock{},
		&model.Caja{},
		&model.SesionCaja{},
		&model.MovimientoCaja{},
		&model.Factura{},
		&model.FacturaItem{},
		&model.Pago{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot produce.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// Invoice numbering: strictly increasing under concurrency.
		`CREATE SEQUENCE IF NOT EXISTS facturas_numero_seq START 1`,
		// Fast lookup of the single open session per register.
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_sesiones_caja_abierta') THEN
		    CREATE UNIQUE INDEX idx_sesiones_caja_abierta
		        ON sesiones_caja (caja_id)
		        WHERE estado = 'abierta';
		  END IF;
		END $$`,
		// Payments are summed per session at close time.
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_pagos_sesion_efectivo') THEN
		    CREATE INDEX idx_pagos_sesion_efectivo
		        ON pagos (sesion_caja_id)
		        WHERE metodo = 'efectivo';
		  END IF;
		END $$`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
