package nodeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gabrielantonyxaviour/jedi-vault/interfaces"
)

// Endpoint paths of the per-node wire protocol.
const (
	createPath = "/api/v1/data/create"
	readPath   = "/api/v1/data/read"
	deletePath = "/api/v1/data/delete"
)

// Client performs single authenticated calls against individual storage
// nodes. It is stateless: no session, no retry counter, no pending-write
// queue. Failure normalization happens here - a transport-level problem
// becomes ErrNodeUnreachable, a non-2xx node response becomes
// ErrNodeRejected - so coordinators only ever see the uniform taxonomy.
type Client struct {
	httpClient *http.Client
}

// New creates a node client. Passing nil uses http.DefaultClient; callers
// are expected to bound individual calls through the context instead of a
// client-wide timeout.
func New(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient}
}

type createRequest struct {
	Schema interfaces.SchemaID        `json:"schema"`
	Data   []interfaces.PartialRecord `json:"data"`
}

type filterRequest struct {
	Schema interfaces.SchemaID `json:"schema"`
	Filter interfaces.Filter   `json:"filter"`
}

type readResponse struct {
	Data []interfaces.PartialRecord `json:"data"`
}

// Create writes exactly one partial record to one node.
func (c *Client) Create(ctx context.Context, node interfaces.NodeDescriptor, token interfaces.BearerToken, schema interfaces.SchemaID, record interfaces.PartialRecord) error {
	body := createRequest{Schema: schema, Data: []interfaces.PartialRecord{record}}
	resp, err := c.post(ctx, node, token, createPath, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return classifyStatus(node, resp)
}

// Read fetches the partial records matching the filter as seen by one node.
// The outcome keeps "zero matches" and "node failed" apart: a healthy node
// with no data answers NodeOK with an empty list, never NodeUnreachable.
func (c *Client) Read(ctx context.Context, node interfaces.NodeDescriptor, token interfaces.BearerToken, schema interfaces.SchemaID, filter interfaces.Filter) interfaces.ReadOutcome {
	if filter == nil {
		filter = interfaces.Filter{}
	}
	resp, err := c.post(ctx, node, token, readPath, filterRequest{Schema: schema, Filter: filter})
	if err != nil {
		return interfaces.ReadOutcome{Status: interfaces.NodeUnreachable, Err: err}
	}
	defer resp.Body.Close()

	if err := classifyStatus(node, resp); err != nil {
		return interfaces.ReadOutcome{Status: interfaces.NodeRejected, Err: err}
	}

	var parsed readResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return interfaces.ReadOutcome{
			Status: interfaces.NodeRejected,
			Err:    fmt.Errorf("%w: node %s returned unparseable response: %v", interfaces.ErrNodeRejected, node.ID, err),
		}
	}
	return interfaces.ReadOutcome{Status: interfaces.NodeOK, Records: parsed.Data}
}

// Delete removes the records matching the filter from one node.
func (c *Client) Delete(ctx context.Context, node interfaces.NodeDescriptor, token interfaces.BearerToken, schema interfaces.SchemaID, filter interfaces.Filter) error {
	if filter == nil {
		filter = interfaces.Filter{}
	}
	resp, err := c.post(ctx, node, token, deletePath, filterRequest{Schema: schema, Filter: filter})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return classifyStatus(node, resp)
}

func (c *Client) post(ctx context.Context, node interfaces.NodeDescriptor, token interfaces.BearerToken, path string, body any) (*http.Response, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("could not encode request for node %s: %w", node.ID, err)
	}

	url := strings.TrimSuffix(node.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("could not build request for node %s: %w", node.ID, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: node %s: %v", interfaces.ErrNodeUnreachable, node.ID, err)
	}
	return resp, nil
}

// classifyStatus converts a non-2xx node response into ErrNodeRejected,
// keeping the response body for diagnostics.
func classifyStatus(node interfaces.NodeDescriptor, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	bodyBytes, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if readErr != nil || len(bodyBytes) == 0 {
		return fmt.Errorf("%w: node %s returned status %d", interfaces.ErrNodeRejected, node.ID, resp.StatusCode)
	}
	return fmt.Errorf("%w: node %s returned status %d: %s", interfaces.ErrNodeRejected, node.ID, resp.StatusCode, string(bodyBytes))
}
