// clinicguard - backup, integrity verification and disaster recovery for clinic records
package main

import (
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/cli"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/logging"
)

// version is overridden with -ldflags "-X main.version=..."
var version = "0.1.0"

func main() {
	cli.SetVersion(version)
	defer func() { _ = logging.Sync() }()
	cli.Execute()
}
