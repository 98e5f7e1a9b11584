package vault

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gabrielantonyxaviour/jedi-vault/interfaces"
)

// Client is the encrypted multi-node storage client. It splits protected
// record fields into one share per node, stores partial records under
// node-scoped short-lived credentials, and reconstructs plaintext on read
// only when every configured node contributed its share.
type Client struct {
	cfg    *ClusterConfig
	sharer interfaces.SecretSharer
	issuer interfaces.TokenIssuer
	caller interfaces.NodeCaller
	log    *slog.Logger
}

// New wires a storage client from its collaborators. The sharing engine's
// node binding must match the configured topology; previously split data is
// unrecoverable under any other node set, so a mismatch is refused outright.
func New(cfg *ClusterConfig, sharer interfaces.SecretSharer, issuer interfaces.TokenIssuer, caller interfaces.NodeCaller, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sharer.Nodes() != len(cfg.Nodes) {
		return nil, fmt.Errorf("sharing engine is keyed for %d nodes, cluster has %d", sharer.Nodes(), len(cfg.Nodes))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		sharer: sharer,
		issuer: issuer,
		caller: caller,
		log:    logger,
	}, nil
}

// route maps a logical collection name to its spec.
func (c *Client) route(collection string) (interfaces.CollectionSpec, error) {
	spec, ok := c.cfg.Collections[collection]
	if !ok {
		return interfaces.CollectionSpec{}, fmt.Errorf("%w: %q", interfaces.ErrUnknownCollection, collection)
	}
	return spec, nil
}

// callCtx bounds one node call.
func (c *Client) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := c.cfg.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
