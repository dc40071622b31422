package main

import (
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/trezcool/quizbank/apps/shared"
	"github.com/trezcool/quizbank/storage/database"
)

var (
	gooseRunFunc = goose.Run // mockable

	errNoDatabase = errors.New("this command needs the postgres engine")
)

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoDatabase
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(args[0], cli.db, database.MigrationsDir, arguments...)
}

// createDB creates the application role and database, then applies every migration.
func (cli *commandLine) createDB() error {
	if cli.conf.Database.Engine == shared.EngineMemory {
		return errNoDatabase
	}
	if err := database.CreateIfNotExist(cli.conf); err != nil {
		return errors.Wrap(err, "creating database")
	}
	db, err := database.Open(cli.conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer db.Close()
	return errors.Wrap(database.Migrate(db.DB), "migrating database")
}
