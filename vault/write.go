package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gabrielantonyxaviour/jedi-vault/interfaces"
)

// Write stores a logical record: it mints a fresh identifier, splits every
// protected field into one share per node, and fans one partial record out
// to each node. The write succeeds only if all nodes acknowledge.
func (c *Client) Write(ctx context.Context, collection string, fields map[string]any) (interfaces.RecordID, error) {
	id := interfaces.NewRecordID()
	if err := c.WriteWithID(ctx, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

// WriteWithID behaves like Write under a caller-supplied identifier. Reusing
// an identifier is how a record is overwritten; concurrent writes under the
// same identifier are not coordinated against each other, node-side
// semantics decide who wins.
func (c *Client) WriteWithID(ctx context.Context, collection string, id interfaces.RecordID, fields map[string]any) error {
	spec, err := c.route(collection)
	if err != nil {
		return err
	}

	partials, err := c.assemblePartials(spec, id, fields)
	if err != nil {
		return err
	}

	tokens, err := c.issuer.IssueTokens(c.cfg.Nodes)
	if err != nil {
		return err
	}

	// Fan out one write per node. No node's call serializes behind
	// another's; the join below is the only barrier.
	errs := make([]error, len(c.cfg.Nodes))
	var wg sync.WaitGroup
	for i, node := range c.cfg.Nodes {
		wg.Add(1)
		go func(i int, node interfaces.NodeDescriptor) {
			defer wg.Done()
			callCtx, cancel := c.callCtx(ctx)
			defer cancel()
			errs[i] = c.caller.Create(callCtx, node, tokens[i], spec.Schema, partials[i])
		}(i, node)
	}
	wg.Wait()

	var failed []error
	var acked []int
	for i, nodeErr := range errs {
		if nodeErr != nil {
			failed = append(failed, nodeErr)
			c.log.Error("node write failed",
				slog.String("collection", collection),
				slog.String("record_id", id.String()),
				slog.String("node", c.cfg.Nodes[i].ID.String()),
				slog.Any("err", nodeErr))
		} else {
			acked = append(acked, i)
		}
	}
	if len(failed) == 0 {
		c.log.Info("record written",
			slog.String("collection", collection),
			slog.String("record_id", id.String()),
			slog.Int("nodes", len(c.cfg.Nodes)))
		return nil
	}

	// Non-unanimous write: the record can never be reconstructed, so report
	// failure and try to remove the shares that did land. The cleanup is
	// best effort only; a node that just failed a write may fail the delete
	// too, and the caller must treat the record as nonexistent either way.
	c.cleanupPartialWrite(ctx, collection, spec.Schema, id, tokens, acked)

	return fmt.Errorf("%w: %d of %d nodes acknowledged record %s: %w",
		interfaces.ErrPartialWrite, len(acked), len(c.cfg.Nodes), id, errors.Join(failed...))
}

// assemblePartials splits a logical record into its per-node payloads.
// Partial record i carries the identifier, every plaintext field verbatim,
// and share i of each protected field.
func (c *Client) assemblePartials(spec interfaces.CollectionSpec, id interfaces.RecordID, fields map[string]any) ([]interfaces.PartialRecord, error) {
	partials := make([]interfaces.PartialRecord, len(c.cfg.Nodes))
	for i := range partials {
		partials[i] = interfaces.PartialRecord{interfaces.RecordIDKey: id.String()}
	}

	for name, value := range fields {
		fieldSpec, ok := spec.Field(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", interfaces.ErrUnknownField, name)
		}

		if !fieldSpec.Kind.Protected() {
			for i := range partials {
				partials[i][name] = value
			}
			continue
		}

		shares, err := c.sharer.Split(fieldSpec.Kind, value)
		if err != nil {
			return nil, fmt.Errorf("could not split field %q: %w", name, err)
		}
		for i := range partials {
			partials[i].SetShare(name, shares[i])
		}
	}
	return partials, nil
}

// cleanupPartialWrite issues best-effort deletes for the nodes that
// acknowledged a write that overall failed. Runs detached from the caller's
// context so a canceled write still gets its cleanup attempt.
func (c *Client) cleanupPartialWrite(ctx context.Context, collection string, schema interfaces.SchemaID, id interfaces.RecordID, tokens []interfaces.BearerToken, acked []int) {
	if len(acked) == 0 {
		return
	}

	filter := interfaces.Filter{interfaces.RecordIDKey: id.String()}
	var wg sync.WaitGroup
	for _, i := range acked {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			callCtx, cancel := c.callCtx(context.WithoutCancel(ctx))
			defer cancel()
			if err := c.caller.Delete(callCtx, c.cfg.Nodes[i], tokens[i], schema, filter); err != nil {
				c.log.Warn("partial write cleanup failed",
					slog.String("collection", collection),
					slog.String("record_id", id.String()),
					slog.String("node", c.cfg.Nodes[i].ID.String()),
					slog.Any("err", err))
			}
		}(i)
	}
	wg.Wait()
}
