package main

import (
	"fmt"
	"os"

	"github.com/Braden-sui/Vibecodr-sub002/internal/bootstrap"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/mzap"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/util"
)

// @title			Capsule Platform Control Plane API
// @version		v1
// @description	Bundle ingestion, artifact compilation, run lifecycle, egress proxy, and social graph for the capsule platform.
// @license.name	Apache 2.0
// @license.url	http://www.apache.org/licenses/LICENSE-2.0.html
// @BasePath		/
func main() {
	util.LoadLocalEnvFile()

	logger := mzap.InitializeLogger()

	service, err := bootstrap.InitServer(logger)
	if err != nil {
		logger.Errorf("failed to initialize service: %v", err)
		_ = logger.Sync()

		fmt.Fprintf(os.Stderr, "failed to initialize service: %v\n", err)

		os.Exit(1)
	}

	service.Run()
}
