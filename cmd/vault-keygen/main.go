package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/gabrielantonyxaviour/jedi-vault/tokens"
)

var flagOut = &cli.StringFlag{
	Name:  "out",
	Value: "vault-signing-key.pem",
	Usage: "file to write the private signing key to",
}
var flagPubOut = &cli.StringFlag{
	Name:  "pub-out",
	Value: "vault-signing-key.pub.pem",
	Usage: "file to write the public verification key to",
}

func main() {
	app := &cli.App{
		Name:  "vault-keygen",
		Usage: "Generate an ECDSA signing key pair for the vault token issuer",
		Flags: []cli.Flag{flagOut, flagPubOut},
		Action: func(cCtx *cli.Context) error {
			keyPEM, err := tokens.GenerateKeyPEM()
			if err != nil {
				return fmt.Errorf("could not generate key: %w", err)
			}
			if err := os.WriteFile(cCtx.String(flagOut.Name), keyPEM, 0o600); err != nil {
				return err
			}

			issuer, err := tokens.NewIssuer("keygen", keyPEM)
			if err != nil {
				return err
			}
			pubPEM, err := issuer.PublicKeyPEM()
			if err != nil {
				return err
			}
			if err := os.WriteFile(cCtx.String(flagPubOut.Name), pubPEM, 0o644); err != nil {
				return err
			}

			fmt.Printf("wrote %s and %s\n", cCtx.String(flagOut.Name), cCtx.String(flagPubOut.Name))
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
