package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/turtacn/simhost/internal/cli"
	"github.com/turtacn/simhost/pkg/consts"
	"github.com/turtacn/simhost/pkg/logger"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error("Panic recovered", "panic", r, "stack", string(debug.Stack()))
			fmt.Fprintf(os.Stderr, "simhost: fatal: %v\n", r)
			os.Exit(consts.ExitFailure)
		}
	}()

	cli.Execute()
}

// Personal.AI order the ending
