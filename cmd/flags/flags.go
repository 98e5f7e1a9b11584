package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/gabrielantonyxaviour/jedi-vault/common"
	"github.com/gabrielantonyxaviour/jedi-vault/nodesim"
)

// SetupLogger builds the process logger from the shared logging flags.
func SetupLogger(cCtx *cli.Context, service string) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJSONFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUIDFlag.Name)

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: service,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

// ConfigureServer assembles a node server config from the shared server flags.
func ConfigureServer(cCtx *cli.Context, logger *slog.Logger) *nodesim.ServerConfig {
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &nodesim.ServerConfig{
		ListenAddr:               cCtx.String(ListenAddrFlag.Name),
		Log:                      logger,
		EnablePprof:              enablePprof,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

var ListenAddrFlag = &cli.StringFlag{
	Name:    "listen-addr",
	Value:   "127.0.0.1:8080",
	Usage:   "address to listen on for the node API",
	EnvVars: []string{"VAULT_NODE_LISTEN_ADDR"},
}

var NodeIDFlag = &cli.StringFlag{
	Name:     "node-id",
	Required: true,
	Usage:    "this node's identity, matched against token audience claims",
	EnvVars:  []string{"VAULT_NODE_ID"},
}

var CallerPubkeyFileFlag = &cli.StringFlag{
	Name:     "caller-pubkey-file",
	Required: true,
	Usage:    "PEM file with the trusted caller's ECDSA public key",
	EnvVars:  []string{"VAULT_NODE_CALLER_PUBKEY_FILE"},
}

var ClusterConfigFlag = &cli.StringFlag{
	Name:     "cluster-config",
	Required: true,
	Usage:    "JSON file with caller identity, node list and collection schemas",
	EnvVars:  []string{"VAULT_CLUSTER_CONFIG"},
}

var SigningKeyFileFlag = &cli.StringFlag{
	Name:     "signing-key-file",
	Required: true,
	Usage:    "PEM file with the caller's ECDSA signing key",
	EnvVars:  []string{"VAULT_SIGNING_KEY_FILE"},
}

var LogJSONFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUIDFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
