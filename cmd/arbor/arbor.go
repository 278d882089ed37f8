package main

import (
	"math/rand"
	"os"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/arborworks/arbor/internal/arbor/cmd"
	"github.com/arborworks/arbor/pkg/logger"
)

func main() {
	rand.New(rand.NewSource(time.Now().UTC().UnixNano()))

	command := cmd.NewDefaultArborCommand()
	if err := command.Execute(); err != nil {
		logger.Error("%v", err)
		logger.FlushLog()
		os.Exit(1)
	}
	logger.FlushLog()
}
