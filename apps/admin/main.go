package main

import (
	"log"
	"os"

	"github.com/trezcool/quizbank/apps/shared"
	"github.com/trezcool/quizbank/core"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()
	cli := commandLine{conf: conf, out: os.Stdout}

	// createdb and token run before the app database exists (or without it)
	var app *shared.App
	if len(os.Args) > 1 && os.Args[1] != "createdb" && os.Args[1] != "token" {
		var err error
		app, err = shared.NewApp(conf, logger)
		errAndDie(err)

		cli.svc = app.QuestionSvc
		if app.DB != nil {
			cli.db = app.DB.DB
		}
	}

	err := cli.run(os.Args)
	if app != nil {
		_ = app.Close()
	}
	if err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %+v\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
