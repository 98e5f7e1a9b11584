package vault

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gabrielantonyxaviour/jedi-vault/interfaces"
)

// DefaultCallTimeout bounds every individual node call. The wire protocol
// itself has no timeout, so without this a single hung node would block the
// fan-in join indefinitely.
const DefaultCallTimeout = 10 * time.Second

// ClusterConfig describes the fixed node topology and the collection schema
// table the client operates against. It is supplied by the environment,
// typically from a JSON file via LoadClusterConfig.
type ClusterConfig struct {
	// CallerID is this client's identity, used as the token issuer claim.
	CallerID string `json:"caller_id"`

	// Nodes is the ordered list of storage nodes. The order is significant:
	// share i of every protected field goes to node i.
	Nodes []interfaces.NodeDescriptor `json:"nodes"`

	// Collections maps logical collection names to their node-side schema
	// and field protection kinds.
	Collections map[string]interfaces.CollectionSpec `json:"collections"`

	// CallTimeout bounds each node call. Zero means DefaultCallTimeout.
	CallTimeout time.Duration `json:"-"`
}

// Validate checks the topology and every collection spec.
func (c *ClusterConfig) Validate() error {
	if c.CallerID == "" {
		return fmt.Errorf("cluster config missing caller identity")
	}
	if len(c.Nodes) < 2 {
		return fmt.Errorf("cluster config requires at least 2 nodes, got %d", len(c.Nodes))
	}
	seen := make(map[interfaces.NodeID]struct{}, len(c.Nodes))
	for _, node := range c.Nodes {
		if err := node.Validate(); err != nil {
			return err
		}
		if _, dup := seen[node.ID]; dup {
			return fmt.Errorf("duplicate node identity %s", node.ID)
		}
		seen[node.ID] = struct{}{}
	}
	for name, spec := range c.Collections {
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("collection %q: %w", name, err)
		}
	}
	return nil
}

// LoadClusterConfig reads and validates a cluster configuration file.
func LoadClusterConfig(path string) (*ClusterConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read cluster config: %w", err)
	}
	var cfg ClusterConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("could not parse cluster config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cluster config %s: %w", path, err)
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	return &cfg, nil
}
