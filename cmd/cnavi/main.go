package main

import (
	"context"

	"cnavi/cmd/cnavi/commands"
	"cnavi/lib/serviceutil"
)

func main() {
	ctx := serviceutil.SignalContext(context.Background())
	commands.ExecuteContext(ctx)
}
