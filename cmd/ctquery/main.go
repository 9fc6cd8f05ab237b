package main

import (
	"canadiantracker/cmd/ctquery/commands"
	"canadiantracker/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
