package service

import (
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/kardianos/service"
	"go.uber.org/zap"
)

// program adapts the HTTP server to the kardianos service lifecycle.
type program struct {
	addr   string
	router http.Handler
	log    *zap.Logger
	exit   chan struct{}
}

func (p *program) Start(s service.Service) error {
	p.exit = make(chan struct{})
	go p.run()
	return nil
}

func (p *program) run() {
	// A second agent instance on the same kiosk is a configuration
	// mistake; bail out instead of fighting over the port.
	ln, err := net.Listen("tcp", p.addr)
	if err != nil {
		p.log.Error("agent already running or port unavailable", zap.String("addr", p.addr), zap.Error(err))
		return
	}
	ln.Close()

	p.log.Info("print agent listening", zap.String("addr", p.addr))
	if err := http.ListenAndServe(p.addr, p.router); err != nil {
		p.log.Error("server stopped", zap.Error(err))
	}

	<-p.exit
}

func (p *program) Stop(s service.Service) error {
	close(p.exit)
	return nil
}

func serviceConfig() *service.Config {
	return &service.Config{
		Name:        "AnjunganPrintAgent",
		DisplayName: "Anjungan Mandiri Print Agent",
		Description: "Kiosk print relay: raw, label, PDF and HTML printing to local printers",
		Option: service.KeyValue{
			"RunAtLoad":        true,
			"DelayedAutoStart": false,
			"StartType":        "automatic",
		},
	}
}

// Run starts the agent under the OS service manager, or executes a service
// control verb (install, uninstall, start, stop, restart, status) when one
// is passed on the command line.
func Run(addr string, router http.Handler, log *zap.Logger) error {
	prg := &program{addr: addr, router: router, log: log}
	svc, err := service.New(prg, serviceConfig())
	if err != nil {
		return err
	}

	if len(os.Args) > 1 {
		verb := os.Args[1]
		switch verb {
		case "status":
			status, err := svc.Status()
			if err != nil {
				return fmt.Errorf("failed to get service status: %w", err)
			}
			fmt.Printf("Service status: %v\n", status)
			return nil
		case "install", "uninstall", "start", "stop", "restart":
			if err := service.Control(svc, verb); err != nil {
				return fmt.Errorf("service %s failed: %w", verb, err)
			}
			fmt.Printf("Service %s done\n", verb)
			if verb == "install" {
				// Installing without starting leaves the kiosk
				// printless until the next boot.
				service.Control(svc, "start")
			}
			return nil
		}
	}

	return svc.Run()
}
