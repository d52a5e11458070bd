package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/tuition/apps/api/echo"
	"github.com/trezcool/tuition/core"
	"github.com/trezcool/tuition/core/debt"
	"github.com/trezcool/tuition/core/group"
	"github.com/trezcool/tuition/core/payment"
	"github.com/trezcool/tuition/core/stats"
	"github.com/trezcool/tuition/core/student"
	"github.com/trezcool/tuition/services/email"
	"github.com/trezcool/tuition/services/logger"
	"github.com/trezcool/tuition/services/reminder"
	"github.com/trezcool/tuition/storage/database"
	"github.com/trezcool/tuition/storage/database/sqlx"
)

func startManual() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := newLogger("api", conf)
	defer logger.Close()
	dbLogger := newLogger("db", conf)
	defer dbLogger.Close()

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up repos & services
	stdRepo := sqlxrepos.NewStudentRepository(db)
	grpRepo := sqlxrepos.NewGroupRepository(db)
	payRepo := sqlxrepos.NewPaymentRepository(db)
	store := sqlxrepos.NewLedgerStore(db)

	debtSvc := debt.NewService(store, dbLogger, conf)
	reminderSvc := remindersvc.NewService(debtSvc, emailsvc.New(conf), logger, conf)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	payment.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start Overdue Digest

	if err = reminderSvc.Start(); err != nil {
		logger.Fatal(fmt.Sprintf("starting overdue digest: %v", err), err)
	}

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			StudentSvc: student.NewService(db, stdRepo),
			GroupSvc:   group.NewService(db, grpRepo, stdRepo),
			PaymentSvc: payment.NewService(db, payRepo, stdRepo, grpRepo),
			DebtSvc:    debtSvc,
			StatsSvc:   stats.NewService(store, dbLogger, conf),
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		reminderSvc.Stop(ctx)

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func newLogger(name string, conf *core.Config) *logsvc.RollbarLogger {
	zl, err := logsvc.NewZap(name, conf)
	if err != nil {
		log.Fatalf("setting up %s logger: %v", name, err)
	}
	logger := logsvc.NewRollbarLogger(zl, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
