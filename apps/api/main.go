package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	"github.com/trezcool/quizbank/apps/api/echo"
	"github.com/trezcool/quizbank/apps/shared"
	"github.com/trezcool/quizbank/core"
)

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	if err := run(std); err != nil {
		std.Printf("error: %+v", err)
		os.Exit(1)
	}
}

func run(std *log.Logger) error {
	conf := core.NewConfig()

	app, err := shared.NewApp(conf, std)
	if err != nil {
		return errors.Wrap(err, "setting up app")
	}
	defer func() { _ = app.Close() }()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(
		&echoapi.Options{
			Address:   conf.Server.Address,
			AppName:   conf.AppName,
			SecretKey: conf.SecretKey,
			Debug:     conf.Debug,
			TestMode:  conf.TestMode,
		},
		&echoapi.Deps{
			Logger:      app.Logger,
			Translator:  app.Translator,
			QuestionSvc: app.QuestionSvc,
			Metrics:     app.Metrics,
		},
		func() {
			select {
			case shutdown <- syscall.SIGTERM:
			default:
			}
		},
	)

	serverErrors := make(chan error, 1)
	go func() {
		std.Printf("listening on %s", conf.Server.Address)
		serverErrors <- server.Start()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "server error")
		}
		return nil
	case sig := <-shutdown:
		std.Printf("%v: shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Stop(ctx); err != nil {
			return errors.Wrap(err, "stopping server gracefully")
		}
		return nil
	}
}
