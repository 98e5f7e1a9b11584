package main

import (
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/gabrielantonyxaviour/jedi-vault/cmd/flags"
	"github.com/gabrielantonyxaviour/jedi-vault/interfaces"
	"github.com/gabrielantonyxaviour/jedi-vault/nodeclient"
	"github.com/gabrielantonyxaviour/jedi-vault/sharing"
	"github.com/gabrielantonyxaviour/jedi-vault/tokens"
	"github.com/gabrielantonyxaviour/jedi-vault/vault"
)

var flagCollection = &cli.StringFlag{
	Name:     "collection",
	Required: true,
	Usage:    "logical collection name",
}
var flagField = &cli.StringSliceFlag{
	Name:  "field",
	Usage: "field value as name=value, repeatable",
}
var flagFilter = &cli.StringSliceFlag{
	Name:  "filter",
	Usage: "match criterion as name=value, repeatable",
}
var flagRecordID = &cli.StringFlag{
	Name:  "id",
	Usage: "reuse an existing record identifier instead of minting one",
}

// Shares are split under a cluster key generated fresh per process, so only
// records written by this same invocation can be reconstructed. The demo
// command exercises the full write/read cycle in one run.
const usage string = `Talk to a secret vault cluster. Records written in one invocation
can only be reconstructed within that same invocation, since the cluster key
lives for exactly one process.`

func main() {
	godotenv.Load()

	app := &cli.App{
		Name:  "vault-client",
		Usage: usage,
		Flags: []cli.Flag{
			flags.ClusterConfigFlag,
			flags.SigningKeyFileFlag,
			flags.LogJSONFlag,
			flags.LogDebugFlag,
		},
		Commands: []*cli.Command{
			{
				Name:  "write",
				Usage: "split a record into shares and store it on every node",
				Flags: []cli.Flag{flagCollection, flagField, flagRecordID},
				Action: func(cCtx *cli.Context) error {
					c, err := newClient(cCtx)
					if err != nil {
						return err
					}
					return c.write(cCtx)
				},
			},
			{
				Name:  "read",
				Usage: "read and reconstruct records matching a filter",
				Flags: []cli.Flag{flagCollection, flagFilter},
				Action: func(cCtx *cli.Context) error {
					c, err := newClient(cCtx)
					if err != nil {
						return err
					}
					return c.read(cCtx)
				},
			},
			{
				Name:  "delete",
				Usage: "delete records matching a filter from every node",
				Flags: []cli.Flag{flagCollection, flagFilter},
				Action: func(cCtx *cli.Context) error {
					c, err := newClient(cCtx)
					if err != nil {
						return err
					}
					return c.delete(cCtx)
				},
			},
			{
				Name:  "demo",
				Usage: "write a record and read it back through the full share cycle",
				Flags: []cli.Flag{flagCollection, flagField},
				Action: func(cCtx *cli.Context) error {
					c, err := newClient(cCtx)
					if err != nil {
						return err
					}
					return c.demo(cCtx)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type client struct {
	cfg   *vault.ClusterConfig
	vault interfaces.SecretVault
	log   *slog.Logger
}

func newClient(cCtx *cli.Context) (*client, error) {
	logger := flags.SetupLogger(cCtx, "vault-client")

	cfg, err := vault.LoadClusterConfig(cCtx.String(flags.ClusterConfigFlag.Name))
	if err != nil {
		return nil, err
	}

	keyPEM, err := os.ReadFile(cCtx.String(flags.SigningKeyFileFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("could not read signing key: %w", err)
	}
	issuer, err := tokens.NewIssuer(cfg.CallerID, keyPEM)
	if err != nil {
		return nil, err
	}

	engine, err := sharing.NewEngine(len(cfg.Nodes))
	if err != nil {
		return nil, err
	}

	v, err := vault.New(cfg, engine, issuer, nodeclient.New(nil), logger)
	if err != nil {
		return nil, err
	}
	return &client{cfg: cfg, vault: v, log: logger}, nil
}

func (c *client) write(cCtx *cli.Context) error {
	collection := cCtx.String(flagCollection.Name)
	fields, err := c.parseFields(collection, cCtx.StringSlice(flagField.Name))
	if err != nil {
		return err
	}

	if idArg := cCtx.String(flagRecordID.Name); idArg != "" {
		id, err := interfaces.NewRecordIDFromString(idArg)
		if err != nil {
			return err
		}
		if err := c.vault.WriteWithID(cCtx.Context, collection, id, fields); err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	}

	id, err := c.vault.Write(cCtx.Context, collection, fields)
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func (c *client) read(cCtx *cli.Context) error {
	collection := cCtx.String(flagCollection.Name)
	filter, err := c.parseFilter(collection, cCtx.StringSlice(flagFilter.Name))
	if err != nil {
		return err
	}

	result, err := c.vault.Read(cCtx.Context, collection, filter)
	if err != nil {
		return err
	}
	if result.Degraded() {
		c.log.Warn("read is degraded, result set may be incomplete")
	}

	encoded, _ := json.MarshalIndent(recordsJSON(result.Records), "", "  ")
	fmt.Println(string(encoded))
	return nil
}

func (c *client) delete(cCtx *cli.Context) error {
	collection := cCtx.String(flagCollection.Name)
	filter, err := c.parseFilter(collection, cCtx.StringSlice(flagFilter.Name))
	if err != nil {
		return err
	}
	return c.vault.Delete(cCtx.Context, collection, filter)
}

func (c *client) demo(cCtx *cli.Context) error {
	collection := cCtx.String(flagCollection.Name)
	fields, err := c.parseFields(collection, cCtx.StringSlice(flagField.Name))
	if err != nil {
		return err
	}

	id, err := c.vault.Write(cCtx.Context, collection, fields)
	if err != nil {
		return err
	}
	c.log.Info("record written", "record_id", id.String())

	result, err := c.vault.Read(cCtx.Context, collection, interfaces.Filter{interfaces.RecordIDKey: id.String()})
	if err != nil {
		return err
	}

	encoded, _ := json.MarshalIndent(recordsJSON(result.Records), "", "  ")
	fmt.Println(string(encoded))
	return nil
}

// parseFields converts name=value arguments into typed field values, using
// the collection spec to decide which fields hold integers.
func (c *client) parseFields(collection string, args []string) (map[string]any, error) {
	spec, ok := c.cfg.Collections[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %q", interfaces.ErrUnknownCollection, collection)
	}

	fields := make(map[string]any, len(args))
	for _, arg := range args {
		name, value, found := strings.Cut(arg, "=")
		if !found {
			return nil, fmt.Errorf("field %q is not name=value", arg)
		}
		fieldSpec, declared := spec.Field(name)
		if declared && fieldSpec.Kind == interfaces.FieldSecretSum {
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("field %q wants an integer: %w", name, err)
			}
			fields[name] = n
			continue
		}
		fields[name] = value
	}
	return fields, nil
}

func (c *client) parseFilter(collection string, args []string) (interfaces.Filter, error) {
	fields, err := c.parseFields(collection, args)
	if err != nil {
		return nil, err
	}
	return interfaces.Filter(fields), nil
}

func recordsJSON(records []interfaces.Record) []map[string]any {
	out := make([]map[string]any, 0, len(records))
	for _, r := range records {
		entry := map[string]any{interfaces.RecordIDKey: r.ID.String()}
		for k, v := range r.Fields {
			entry[k] = v
		}
		out = append(out, entry)
	}
	return out
}
