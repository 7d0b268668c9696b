package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danmuck/relayctl/internal/hub"
	"github.com/danmuck/relayctl/internal/logging"
	"github.com/danmuck/relayctl/internal/observability"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()

	logging.ConfigureRuntime()
	logger := observability.InitLogger("relayctl")

	cfg := hub.DefaultServiceConfig()
	if *configPath != "" {
		loaded, err := loadServiceConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "relayctl: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	applyEnvOverrides(&cfg)

	svc := hub.NewServiceWithConfig(cfg, logger)
	if err := svc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "relayctl: %v\n", err)
		os.Exit(1)
	}
}
