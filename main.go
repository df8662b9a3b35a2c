package main

import (
	"net"
	"os"

	"go.uber.org/zap"

	"anjungan-print-agent/internal/api"
	"anjungan-print-agent/internal/config"
	"anjungan-print-agent/internal/logger"
	"anjungan-print-agent/internal/printing"
	"anjungan-print-agent/internal/render"
	"anjungan-print-agent/internal/service"
	"anjungan-print-agent/internal/update"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.Log)
	defer log.Sync()

	spooler := printing.NewSpooler(cfg.Print, log.Named("spooler"))
	renderer := render.NewChromeRenderer(cfg.Render, log.Named("render"))
	defer renderer.Close()

	server := api.NewServer(cfg, log, spooler, spooler, renderer, update.NewSelfUpdater())

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	if err := service.Run(addr, server.Router(), log); err != nil {
		log.Error("agent exited with error", zap.Error(err))
		os.Exit(1)
	}
}
