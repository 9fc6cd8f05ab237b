package main

import (
	"canadiantracker/cmd/ctscraper/commands"
	"canadiantracker/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
