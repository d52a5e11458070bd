package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	"github.com/trezcool/tuition/apps/api/echo"
	"github.com/trezcool/tuition/core"
	"github.com/trezcool/tuition/core/debt"
	"github.com/trezcool/tuition/core/group"
	"github.com/trezcool/tuition/core/ledger"
	"github.com/trezcool/tuition/core/payment"
	"github.com/trezcool/tuition/core/stats"
	"github.com/trezcool/tuition/core/student"
	"github.com/trezcool/tuition/services/email"
	"github.com/trezcool/tuition/services/logger"
	"github.com/trezcool/tuition/services/reminder"
	"github.com/trezcool/tuition/storage/database"
	"github.com/trezcool/tuition/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type serverParams struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	StudentSvc *student.Service
	GroupSvc   *group.Service
	PaymentSvc *payment.Service
	DebtSvc    *debt.Service
	StatsSvc   *stats.Service
	Validate   *validator.Validate
	Translator ut.Translator
}

func newRollbarLogger(name string, conf *core.Config) core.Logger {
	zl, err := logsvc.NewZap(name, conf)
	if err != nil {
		log.Fatalf("setting up %s logger: %v", name, err)
	}
	logger := logsvc.NewRollbarLogger(zl, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newLogger(conf *core.Config) core.Logger {
	return newRollbarLogger("api", conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	return newRollbarLogger("db", conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(context.Background(), db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db
}

func newDebtService(store ledger.Store, loggerParam DBLoggerParam, conf *core.Config) *debt.Service {
	return debt.NewService(store, loggerParam.Logger, conf)
}

func newStatsService(store ledger.Store, loggerParam DBLoggerParam, conf *core.Config) *stats.Service {
	return stats.NewService(store, loggerParam.Logger, conf)
}

func newReminderService(debtSvc *debt.Service, mailer core.EmailService, logger core.Logger, conf *core.Config) *remindersvc.Service {
	return remindersvc.NewService(debtSvc, mailer, logger, conf)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		StudentSvc: p.StudentSvc,
		GroupSvc:   p.GroupSvc,
		PaymentSvc: p.PaymentSvc,
		DebtSvc:    p.DebtSvc,
		StatsSvc:   p.StatsSvc,
		Validate:   p.Validate,
		Translator: p.Translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(sqlxrepos.NewStudentRepository, dig.As(new(student.Repository))))
	must(c.Provide(sqlxrepos.NewGroupRepository, dig.As(new(group.Repository))))
	must(c.Provide(sqlxrepos.NewPaymentRepository, dig.As(new(payment.Repository))))
	must(c.Provide(sqlxrepos.NewLedgerStore, dig.As(new(ledger.Store))))
	must(c.Provide(student.NewService))
	must(c.Provide(group.NewService))
	must(c.Provide(payment.NewService))
	must(c.Provide(newDebtService))
	must(c.Provide(newStatsService))
	must(c.Provide(emailsvc.New))
	must(c.Provide(newReminderService))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))
	must(c.Provide(newServer))

	if os.Getenv("DIG_VISUALIZE") != "" {
		_ = dig.Visualize(c, os.Stdout)
	}

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
