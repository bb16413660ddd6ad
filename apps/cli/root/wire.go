package root

import (
	"github.com/atelier-labs/pencilbook/apps/cli/cmd/bootstrap"
	"github.com/atelier-labs/pencilbook/apps/cli/cmd/sweep"
	"github.com/atelier-labs/pencilbook/apps/cli/cmd/tenant"
)

func init() {
	Root().AddCommand(bootstrap.Command())
	Root().AddCommand(tenant.Command())
	Root().AddCommand(sweep.Command())
}
