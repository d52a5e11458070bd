package main

import (
	"fmt"
	"os"

	"github.com/trezcool/tuition/core"
	"github.com/trezcool/tuition/core/debt"
	"github.com/trezcool/tuition/services/email"
	"github.com/trezcool/tuition/services/logger"
	"github.com/trezcool/tuition/services/reminder"
	"github.com/trezcool/tuition/storage/database"
	"github.com/trezcool/tuition/storage/database/sqlx"
)

func main() {
	os.Exit(run())
}

func run() int {
	conf := core.NewConfig()

	zl, err := logsvc.NewZap("admin", conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setting up logger: %v\n", err)
		return 1
	}
	logger := logsvc.NewRollbarLogger(zl, conf)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	// set up DB
	if err = database.CreateIfNotExist(conf); err != nil {
		logger.Error("creating database", err)
		return 1
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Error("opening database", err)
		return 1
	}
	defer func() { _ = db.Close() }()

	// start CLI
	debtSvc := debt.NewService(sqlxrepos.NewLedgerStore(db), logger, conf)
	cli := commandLine{
		db:        db,
		engine:    conf.Database.Engine,
		debtSvc:   debtSvc,
		digestSvc: remindersvc.NewService(debtSvc, emailsvc.New(conf), logger, conf),
		out:       os.Stdout,
		outFd:     int(os.Stdout.Fd()),
	}
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err, map[string]interface{}{"args": os.Args[1:]})
		}
		return 1
	}
	return 0
}
