// Package shared wires the question service for the api and admin binaries.
package shared

import (
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/quizbank/core"
	"github.com/trezcool/quizbank/core/attachment"
	"github.com/trezcool/quizbank/core/question"
	"github.com/trezcool/quizbank/services/logger"
	"github.com/trezcool/quizbank/services/metrics"
	"github.com/trezcool/quizbank/storage/database"
	"github.com/trezcool/quizbank/storage/database/inmem"
	"github.com/trezcool/quizbank/storage/database/sqlx"
)

// EngineMemory selects the in-memory store instead of postgres.
const EngineMemory = "memory"

type App struct {
	Conf        *core.Config
	Logger      *logsvc.RollbarLogger
	Translator  ut.Translator
	Metrics     *metrics.Collector
	Files       *attachment.Service
	QuestionSvc *question.Service

	DB *sqlx.DB // nil with the in-memory store
}

func NewApp(conf *core.Config, std *log.Logger) (*App, error) {
	app := &App{
		Conf:       conf,
		Logger:     logsvc.NewRollbarLogger(std, conf),
		Translator: core.NewTranslator(),
		Metrics:    metrics.NewCollector(),
	}

	validate := validator.New()
	core.InitValidators(validate, app.Translator)
	question.RegisterValidators(validate, app.Translator)

	var (
		tx      core.Transactor
		repo    question.Repository
		banks   question.BankRepository
		attRepo attachment.Repository
	)
	if conf.Database.Engine == EngineMemory {
		db := inmemdb.NewDB()
		tx = db
		repo = inmemdb.NewQuestionRepository(db)
		banks = inmemdb.NewBankRepository(db)
		attRepo = inmemdb.NewAttachmentRepository(db)
	} else {
		db, err := database.Open(conf)
		if err != nil {
			return nil, errors.Wrap(err, "opening database")
		}
		app.DB = db
		sqlTx := database.NewTransactor(db)
		tx = sqlTx
		repo = sqlxrepos.NewQuestionRepository(sqlTx)
		banks = sqlxrepos.NewBankRepository(sqlTx)
		attRepo = sqlxrepos.NewAttachmentRepository(sqlTx)
	}

	app.Files = attachment.NewService(attRepo)
	app.QuestionSvc = question.NewService(conf.Questions, question.Deps{
		Tx:       tx,
		Repo:     repo,
		Banks:    banks,
		Files:    app.Files,
		Reporter: app.Logger,
		Logger:   app.Logger,
		Observer: app.Metrics,
		Validate: validate,
	})
	return app, nil
}

// Close releases the database and flushes pending error reports.
func (app *App) Close() error {
	app.Logger.Flush()
	if app.DB != nil {
		return app.DB.Close()
	}
	return nil
}
