package strategy

import (
	"context"

	"github.com/netfault/faultctl/pkg/faultspec"
	"github.com/netfault/faultctl/pkg/logging"
	"github.com/netfault/faultctl/pkg/registry"
)

// ConfigFile instantiates one injector per resolved fault spec from an
// explicit configuration list: a Link Injector for Kind == link, a Node
// Injector for Kind == node. All instances launch concurrently; Run
// returns once every one of them has completed. Grounded on
// ConfigFileFaultController.go in
// original_source/mininet/fault_controllers/ConfigFileFaultController.py.
type ConfigFile struct {
	Specs    []faultspec.Spec
	Registry *registry.Registry
	Logger   *logging.Logger
}

// Run implements Strategy.
func (c *ConfigFile) Run(ctx context.Context) error {
	runAll(ctx, c.Specs, c.Registry, c.Logger)
	return nil
}
