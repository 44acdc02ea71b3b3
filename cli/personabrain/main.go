package main

import (
	"os"

	personabraincmder "github.com/sudo-OMsharma/personabrain/cmd/personabrain"
)

func main() {
	cmd := personabraincmder.NewPersonabrainCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
