package chain

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/dwarvesf/chain-scanner/internal/explorer"
)

// Load reads and validates the chain table at path.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read chain table %s", path)
	}
	table, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "chain table %s", path)
	}
	return table, nil
}

func Parse(data []byte) (*Table, error) {
	var table Table
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, errors.Wrap(err, "decode yaml")
	}
	for i := range table.Chains {
		table.Chains[i].applyDefaults()
	}
	if err := validator.New().Struct(table); err != nil {
		return nil, errors.Wrap(err, "validate")
	}
	if err := table.check(); err != nil {
		return nil, err
	}
	return &table, nil
}

func (c *Chain) applyDefaults() {
	if c.Network == "" {
		c.Network = c.Name
	}
	if c.CacheKey == "" {
		c.CacheKey = c.Name
	}
}

// Enabled returns the chains that are not disabled.
func (t *Table) Enabled() []Chain {
	out := make([]Chain, 0, len(t.Chains))
	for _, c := range t.Chains {
		if !c.Disabled {
			out = append(out, c)
		}
	}
	return out
}

func (t *Table) check() error {
	names := map[string]struct{}{}
	for _, c := range t.Chains {
		if _, dup := names[c.Name]; dup {
			return errors.Errorf("chain %s declared twice", c.Name)
		}
		names[c.Name] = struct{}{}
		if err := c.check(); err != nil {
			return errors.Wrapf(err, "chain %s", c.Name)
		}
	}
	return nil
}

func (c Chain) check() error {
	providers := map[string]struct{}{}
	for _, p := range c.Providers {
		if _, dup := providers[p.Name]; dup {
			return errors.Errorf("provider %s declared twice", p.Name)
		}
		providers[p.Name] = struct{}{}
	}

	valid := map[explorer.Operation]struct{}{}
	for _, op := range explorer.Operations {
		valid[op] = struct{}{}
	}
	for op, names := range c.Operations {
		if _, ok := valid[explorer.Operation(op)]; !ok {
			return errors.Errorf("unknown operation %s", op)
		}
		for _, name := range names {
			if _, ok := providers[name]; !ok {
				return errors.Errorf("operation %s references undeclared provider %s", op, name)
			}
		}
	}
	if len(c.Operations[string(explorer.OpBlockTxs)]) == 0 && len(c.Operations[string(explorer.OpBatchBlockTxs)]) == 0 {
		return errors.New("no provider bound to block_txs or batch_block_txs")
	}
	return nil
}
