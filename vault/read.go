package vault

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gabrielantonyxaviour/jedi-vault/interfaces"
)

// Read fans one filtered read out to every node, groups the returned partial
// records strictly by record identifier, and reconstructs the records for
// which every node contributed a share. Identifiers with an incomplete share
// set are dropped entirely - never returned partial or corrupted - and a
// reconstruction failure on one identifier does not abort the rest.
//
// A node outage does not fail the read; it silently shrinks the result set.
// The returned result carries per-node statuses so callers can tell a
// degraded read from a complete one. Record ordering is unspecified.
func (c *Client) Read(ctx context.Context, collection string, filter interfaces.Filter) (*interfaces.ReadResult, error) {
	spec, err := c.route(collection)
	if err != nil {
		return nil, err
	}

	tokens, err := c.issuer.IssueTokens(c.cfg.Nodes)
	if err != nil {
		return nil, err
	}

	outcomes := make([]interfaces.ReadOutcome, len(c.cfg.Nodes))
	var wg sync.WaitGroup
	for i, node := range c.cfg.Nodes {
		nodeFilter, err := c.nodeFilter(spec, filter, i)
		if err != nil {
			return nil, err
		}
		wg.Add(1)
		go func(i int, node interfaces.NodeDescriptor, nodeFilter interfaces.Filter) {
			defer wg.Done()
			callCtx, cancel := c.callCtx(ctx)
			defer cancel()
			outcomes[i] = c.caller.Read(callCtx, node, tokens[i], spec.Schema, nodeFilter)
		}(i, node, nodeFilter)
	}
	wg.Wait()

	result := c.aggregate(collection, spec, outcomes)
	c.log.Info("read completed",
		slog.String("collection", collection),
		slog.Int("records", len(result.Records)),
		slog.Int("dropped", result.Dropped),
		slog.Bool("degraded", result.Degraded()))
	return result, nil
}

// nodeFilter prepares the filter one node will evaluate. Filters are passed
// through verbatim except for declared secret-match fields, whose plaintext
// criteria are translated into that node's deterministic share form so the
// node can match against its own shares without reconstruction. Filtering on
// randomized share kinds is impossible and refused up front.
func (c *Client) nodeFilter(spec interfaces.CollectionSpec, filter interfaces.Filter, nodeIndex int) (interfaces.Filter, error) {
	if len(filter) == 0 {
		return interfaces.Filter{}, nil
	}

	out := make(interfaces.Filter, len(filter))
	for key, value := range filter {
		fieldSpec, declared := spec.Field(key)
		if !declared || !fieldSpec.Kind.Protected() {
			out[key] = value
			continue
		}

		switch fieldSpec.Kind {
		case interfaces.FieldSecretMatch:
			plain, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("filter on %q wants a string, got %T", key, value)
			}
			share, err := c.sharer.MatchShare(plain, nodeIndex)
			if err != nil {
				return nil, fmt.Errorf("could not derive filter share for %q: %w", key, err)
			}
			out[key] = map[string]any{interfaces.ShareKey: share.String()}
		default:
			return nil, fmt.Errorf("cannot filter on %s field %q", fieldSpec.Kind, key)
		}
	}
	return out, nil
}

// aggregate correlates the per-node read outcomes into reconstructed
// records. Shares are grouped strictly by record identifier; shares from
// different identifiers are never combined, no matter how they look.
func (c *Client) aggregate(collection string, spec interfaces.CollectionSpec, outcomes []interfaces.ReadOutcome) *interfaces.ReadResult {
	result := &interfaces.ReadResult{
		NodeStatuses: make(map[interfaces.NodeID]interfaces.NodeStatus, len(outcomes)),
	}

	// byID[id][i] is node i's partial record for id, at most one per node.
	byID := make(map[interfaces.RecordID][]interfaces.PartialRecord)
	for i, outcome := range outcomes {
		node := c.cfg.Nodes[i]
		result.NodeStatuses[node.ID] = outcome.Status
		if outcome.Status != interfaces.NodeOK {
			c.log.Warn("node did not contribute to read",
				slog.String("collection", collection),
				slog.String("node", node.ID.String()),
				slog.String("status", outcome.Status.String()),
				slog.Any("err", outcome.Err))
			continue
		}

		for _, partial := range outcome.Records {
			id, err := partial.ID()
			if err != nil {
				c.log.Warn("node returned record without identifier",
					slog.String("node", node.ID.String()),
					slog.Any("err", err))
				continue
			}
			group, ok := byID[id]
			if !ok {
				group = make([]interfaces.PartialRecord, len(outcomes))
				byID[id] = group
			}
			if group[i] == nil {
				group[i] = partial
			}
		}
	}

	for id, group := range byID {
		record, err := c.reconstruct(spec, id, group)
		if err != nil {
			result.Dropped++
			c.log.Debug("record dropped from read",
				slog.String("collection", collection),
				slog.String("record_id", id.String()),
				slog.Any("err", err))
			continue
		}
		result.Records = append(result.Records, *record)
	}
	return result
}

// reconstruct rebuilds one logical record from its per-node partials.
// Every protected field present anywhere must have exactly one share from
// every node; plaintext fields are copied from any one node's copy, since
// they are written identically everywhere.
func (c *Client) reconstruct(spec interfaces.CollectionSpec, id interfaces.RecordID, group []interfaces.PartialRecord) (*interfaces.Record, error) {
	fields := make(map[string]any)

	for _, fieldSpec := range spec.Fields {
		if !fieldSpec.Kind.Protected() {
			for _, partial := range group {
				if partial == nil {
					continue
				}
				if value, ok := partial[fieldSpec.Name]; ok {
					fields[fieldSpec.Name] = value
					break
				}
			}
			continue
		}

		shares := make([]interfaces.Share, 0, len(group))
		for _, partial := range group {
			if partial == nil {
				continue
			}
			if share, ok := partial.Share(fieldSpec.Name); ok {
				shares = append(shares, share)
			}
		}
		if len(shares) == 0 {
			continue // field not stored for this record
		}
		if len(shares) != len(group) {
			return nil, fmt.Errorf("%w: field %q has %d of %d shares",
				interfaces.ErrInsufficientShares, fieldSpec.Name, len(shares), len(group))
		}

		value, err := c.sharer.Combine(fieldSpec.Kind, shares)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", fieldSpec.Name, err)
		}
		fields[fieldSpec.Name] = value
	}

	return &interfaces.Record{ID: id, Fields: fields}, nil
}
