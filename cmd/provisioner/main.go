package main

import (
	"errors"
	"os"

	"provisioner/cmd/provisioner/app"
	perrors "provisioner/pkg/errors"

	log "github.com/sirupsen/logrus"
)

func main() {
	if err := Execute(); err != nil {
		// Step failures are already logged by the engine.
		if !errors.Is(err, perrors.ErrStepFailed) {
			log.Error(err)
		}
		os.Exit(app.Code(err))
	}
}
