package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/jhoicas/stock-ledger/internal/infrastructure/migrations"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

func main() {
	logLevel := flag.String("log-level", "info", "nivel de log (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: *logLevel})

	m, err := migrations.New(cfg.DB.ConnectionString(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("crear migrador")
	}
	defer m.Close()

	switch command {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "step":
		n, perr := intArg(args, "step <n>")
		if perr != nil {
			log.Fatal().Err(perr).Msg("argumento inválido")
		}
		err = m.Steps(n)
	case "force":
		v, perr := intArg(args, "force <version>")
		if perr != nil {
			log.Fatal().Err(perr).Msg("argumento inválido")
		}
		log.Warn().Int("version", v).Msg("forzando versión de migración")
		err = m.Force(v)
	case "version":
		v, dirty, verr := m.Version()
		if verr != nil {
			log.Fatal().Err(verr).Msg("leer versión")
		}
		if v == 0 {
			log.Info().Msg("no hay migraciones aplicadas")
		} else {
			log.Info().Uint("version", v).Bool("dirty", dirty).Msg("versión actual")
		}
	default:
		log.Error().Str("command", command).Msg("comando desconocido")
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", command).Msg("migración fallida")
	}
}

func intArg(args []string, usage string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("uso: migrate %s", usage)
	}
	return strconv.Atoi(args[1])
}

func printUsage() {
	fmt.Println(`Migraciones de stock-ledger

Uso:
  migrate [flags] <comando> [argumentos]

Comandos:
  up                Aplica todas las migraciones pendientes
  down              Revierte todas las migraciones
  step <n>          Aplica n migraciones (positivo = up, negativo = down)
  force <version>   Marca la versión como limpia sin ejecutar SQL
  version           Muestra la versión actual

Flags:
  -log-level string Nivel de log (por defecto: info)

Variables de entorno:
  DATABASE_URL o DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME, DB_SSLMODE`)
}
