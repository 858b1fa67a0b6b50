// Command ledgerctl runs ledger operations directly against the configured
// store, without going through the HTTP API.
package main

import (
	"context"
	"os"

	"ledger/internal/cli"
	"ledger/internal/log"
)

func main() {
	cli.LoadEnvFile()
	if err := newRootCmd(openConfiguredStore).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func openConfiguredStore(ctx context.Context) (*session, error) {
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentCLI)

	res, err := cli.OpenStore(ctx, cfg, logger.WithComponent(log.ComponentStorage))
	if err != nil {
		return nil, err
	}
	return &session{store: res.Store, close: res.Cleanup, enforceBalance: cfg.ImportEnforceBalance}, nil
}
