package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/alovak/cardflow-validator/validator"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve card validation over HTTP and ISO 8583",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := validator.LoadConfig(configPath)
	if err != nil {
		return err
	}

	app := validator.NewApp(newLogger(cmd), cfg)
	if err := app.Start(); err != nil {
		return err
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	app.Shutdown()
	return nil
}
