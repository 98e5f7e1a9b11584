package vault

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/gabrielantonyxaviour/jedi-vault/interfaces"
)

// Delete removes the records matching the filter from every node. The same
// all-or-nothing discipline as writes applies: any single node failure makes
// the whole operation report failure, even though other nodes may already
// have deleted their partial records.
func (c *Client) Delete(ctx context.Context, collection string, filter interfaces.Filter) error {
	spec, err := c.route(collection)
	if err != nil {
		return err
	}

	tokens, err := c.issuer.IssueTokens(c.cfg.Nodes)
	if err != nil {
		return err
	}

	nodeFilters := make([]interfaces.Filter, len(c.cfg.Nodes))
	for i := range c.cfg.Nodes {
		nodeFilters[i], err = c.nodeFilter(spec, filter, i)
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, node := range c.cfg.Nodes {
		i, node := i, node
		g.Go(func() error {
			callCtx, cancel := c.callCtx(gctx)
			defer cancel()
			if err := c.caller.Delete(callCtx, node, tokens[i], spec.Schema, nodeFilters[i]); err != nil {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.log.Error("cluster delete failed",
			slog.String("collection", collection),
			slog.Any("err", err))
		return fmt.Errorf("%w: %w", interfaces.ErrPartialDelete, err)
	}

	c.log.Info("records deleted",
		slog.String("collection", collection),
		slog.Int("nodes", len(c.cfg.Nodes)))
	return nil
}
