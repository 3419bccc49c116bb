package main

import (
	"fmt"
	"log/slog"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/flemzord/phrasecue/pkg/app"
)

// program adapts the application loop to the service manager's
// Start/Stop contract. Start must not block, so Run happens in a
// goroutine and Stop relies on the process being signalled.
type program struct {
	configPath string
	errCh      chan error
}

func (p *program) Start(service.Service) error {
	p.errCh = make(chan error, 1)
	go func() {
		p.errCh <- app.Run(app.RunParams{
			ConfigPath: p.configPath,
			Version:    version,
			Commit:     commit,
			Date:       date,
			LogLevel:   slog.LevelInfo,
		})
	}()
	return nil
}

func (p *program) Stop(service.Service) error {
	return nil
}

func newService(configPath string) (service.Service, error) {
	cfg := &service.Config{
		Name:        "phrasecue",
		DisplayName: "phrasecue",
		Description: "Finds spoken phrases in videos and explains them.",
		Arguments:   []string{"service", "run"},
	}
	if configPath != "" {
		cfg.Arguments = append(cfg.Arguments, "--config", configPath)
	}
	return service.New(&program{configPath: configPath}, cfg)
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage phrasecue as a system service",
	}

	var configPath string
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")

	control := func(action string) func(*cobra.Command, []string) error {
		return func(*cobra.Command, []string) error {
			svc, err := newService(configPath)
			if err != nil {
				return err
			}
			if err := service.Control(svc, action); err != nil {
				return fmt.Errorf("service %s: %w", action, err)
			}
			fmt.Printf("Service %s: done\n", action)
			return nil
		}
	}

	cmd.AddCommand(
		&cobra.Command{Use: "install", Short: "Install phrasecue as a system service", RunE: control("install")},
		&cobra.Command{Use: "uninstall", Short: "Remove the system service", RunE: control("uninstall")},
		&cobra.Command{Use: "start", Short: "Start the installed service", RunE: control("start")},
		&cobra.Command{Use: "stop", Short: "Stop the installed service", RunE: control("stop")},
		&cobra.Command{
			Use:    "run",
			Short:  "Run under the service manager (invoked by the manager itself)",
			Hidden: true,
			RunE: func(*cobra.Command, []string) error {
				svc, err := newService(configPath)
				if err != nil {
					return err
				}
				return svc.Run()
			},
		},
	)
	return cmd
}
