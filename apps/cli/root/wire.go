package root

import (
	"github.com/photohub/photohub-saas/apps/cli/cmd/auth"
	"github.com/photohub/photohub-saas/apps/cli/cmd/db"
	"github.com/photohub/photohub-saas/apps/cli/cmd/events"
	"github.com/photohub/photohub-saas/apps/cli/cmd/seed"
)

func init() {
	Root().AddCommand(auth.Command())
	Root().AddCommand(db.Command())
	Root().AddCommand(seed.Command())
	Root().AddCommand(events.Command())
}
