package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/bestqrov/lahwla/core"
	"github.com/bestqrov/lahwla/core/student"
	emailsvc "github.com/bestqrov/lahwla/services/email"
	logsvc "github.com/bestqrov/lahwla/services/logger"
	"github.com/bestqrov/lahwla/storage/database"
	sqlxrepos "github.com/bestqrov/lahwla/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewStdLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags))

	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal("setting up database", err)
	}
	defer func() { _ = db.Close() }()

	repo := sqlxrepos.NewStudentRepository(sqlx.NewDb(db, conf.Database.Engine))
	svc := student.NewService(repo, emailsvc.NewConsoleService(conf), logger, conf)

	cli := &commandLine{studentSvc: svc, db: db}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Fatal(err.Error(), err)
		}
		os.Exit(2)
	}
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}
	return database.Open(conf)
}
