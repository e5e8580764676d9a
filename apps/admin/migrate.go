package main

import "github.com/bestqrov/lahwla/storage/database"

func (cli *commandLine) migrate() error {
	return database.Migrate(cli.db)
}
