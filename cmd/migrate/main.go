package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/geocoder89/userhub/internal/config"
	"github.com/geocoder89/userhub/internal/db"
	"github.com/geocoder89/userhub/internal/observability"
	"github.com/golang-migrate/migrate/v4"
)

const usage = "usage: migrate up|down|version"

func main() {
	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err := run(os.Args[1], cfg.DBURL); err != nil {
		log.Error("migrate failed", "cmd", os.Args[1], "err", err)
		os.Exit(1)
	}

	log.Info("migrate done", "cmd", os.Args[1])
}

func run(cmd, dbURL string) error {
	m, err := db.NewMigrator(dbURL)
	if err != nil {
		return err
	}
	defer m.Close()

	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	case "version":
		v, dirty, verr := m.Version()
		if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
			return verr
		}
		fmt.Printf("version=%d dirty=%t\n", v, dirty)
		return nil
	default:
		return fmt.Errorf("unknown command %q (%s)", cmd, usage)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}
