package main

import (
	"log"

	"github.com/iurnickita/eventbilling/internal/config"
	"github.com/iurnickita/eventbilling/internal/handler"
	"github.com/iurnickita/eventbilling/internal/logger"
	"github.com/iurnickita/eventbilling/internal/service"
	"github.com/iurnickita/eventbilling/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	zaplog, err := logger.NewZapLog(cfg.Logger)
	if err != nil {
		return err
	}
	defer zaplog.Sync()

	store, err := store.NewStore(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	service, err := service.NewService(cfg.Service, store, zaplog)
	if err != nil {
		return err
	}

	return handler.Serve(cfg.Handler, service, zaplog)
}
