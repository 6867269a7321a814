package main

import (
	"sysaid-bridge/cmd/sysaid-cli/commands"
	"sysaid-bridge/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
