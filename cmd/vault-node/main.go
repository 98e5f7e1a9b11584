package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/gabrielantonyxaviour/jedi-vault/cmd/flags"
	"github.com/gabrielantonyxaviour/jedi-vault/interfaces"
	"github.com/gabrielantonyxaviour/jedi-vault/nodesim"
)

var nodeFlags []cli.Flag = []cli.Flag{
	flags.ListenAddrFlag,
	flags.NodeIDFlag,
	flags.CallerPubkeyFileFlag,
	flags.LogJSONFlag,
	flags.LogDebugFlag,
	flags.LogUIDFlag,
	flags.PprofFlag,
	flags.DrainSecondsFlag,
}

func main() {
	godotenv.Load()

	app := &cli.App{
		Name:  "vault-node",
		Usage: "Serve one storage node of the secret vault wire protocol",
		Flags: nodeFlags,
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx, "vault-node")

			nodeID := interfaces.NodeID(cCtx.String(flags.NodeIDFlag.Name))
			callerPubPEM, err := os.ReadFile(cCtx.String(flags.CallerPubkeyFileFlag.Name))
			if err != nil {
				logger.Error("Failed to read caller public key", "err", err)
				return err
			}

			handler, err := nodesim.NewHandler(nodeID, callerPubPEM, logger)
			if err != nil {
				logger.Error("Failed to create node handler", "err", err)
				return err
			}

			srv := nodesim.NewServer(flags.ConfigureServer(cCtx, logger.With("node", nodeID.String())), handler)

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			srv.RunInBackground()
			<-exit

			srv.Shutdown()
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
