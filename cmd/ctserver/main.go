package main

import (
	"canadiantracker/cmd/ctserver/commands"
	"canadiantracker/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
