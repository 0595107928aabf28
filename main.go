package main

import (
	"os"

	"ddos-reassembler/cmd"

	log "github.com/sirupsen/logrus"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.WithError(err).Error("Command execution failed")
		os.Exit(1)
	}
}
