// Package migrations aplica el esquema de PostgreSQL con golang-migrate.
// Los archivos SQL van embebidos en el binario; no se necesita el árbol de fuentes en runtime.
package migrations

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/jhoicas/stock-ledger/pkg/logger"
)

//go:embed sql/*.sql
var files embed.FS

// Migrator ejecuta migraciones sobre una base de datos.
type Migrator struct {
	m   *migrate.Migrate
	log *logger.Logger
}

// New construye el migrador. databaseURL es un DSN postgres:// o postgresql://.
func New(databaseURL string, log *logger.Logger) (*Migrator, error) {
	src, err := iofs.New(files, "sql")
	if err != nil {
		return nil, fmt.Errorf("abrir migraciones embebidas: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, pgx5URL(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("crear migrador: %w", err)
	}
	return &Migrator{m: m, log: log.Component("migrations")}, nil
}

// pgx5URL cambia el esquema del DSN al del driver pgx/v5 de golang-migrate.
func pgx5URL(databaseURL string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(databaseURL, prefix) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, prefix)
		}
	}
	return databaseURL
}

// Up aplica todas las migraciones pendientes.
func (m *Migrator) Up() error {
	err := m.m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		m.log.Info().Msg("esquema al día, sin migraciones pendientes")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migración up: %w", err)
	}
	return m.logVersion("migraciones aplicadas")
}

// Down revierte todas las migraciones.
func (m *Migrator) Down() error {
	err := m.m.Down()
	if errors.Is(err, migrate.ErrNoChange) {
		m.log.Info().Msg("no hay migraciones para revertir")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migración down: %w", err)
	}
	m.log.Info().Msg("migraciones revertidas")
	return nil
}

// Steps aplica n migraciones (positivo = up, negativo = down).
func (m *Migrator) Steps(n int) error {
	err := m.m.Steps(n)
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("migración steps(%d): %w", n, err)
	}
	return m.logVersion("pasos de migración aplicados")
}

// Force marca la versión indicada como limpia sin ejecutar SQL (recuperación de un estado dirty).
func (m *Migrator) Force(version int) error {
	if err := m.m.Force(version); err != nil {
		return fmt.Errorf("migración force(%d): %w", version, err)
	}
	return m.logVersion("versión forzada")
}

// Version devuelve la versión actual y si quedó marcada como sucia.
func (m *Migrator) Version() (uint, bool, error) {
	v, dirty, err := m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

// Close libera la fuente y la conexión.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	return errors.Join(srcErr, dbErr)
}

func (m *Migrator) logVersion(msg string) error {
	v, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("leer versión de migración: %w", err)
	}
	m.log.Info().Uint("version", v).Bool("dirty", dirty).Msg(msg)
	return nil
}
