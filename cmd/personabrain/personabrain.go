// Package personabraincmder
package personabraincmder

import (
	"fmt"

	"github.com/spf13/cobra"

	configcmder "github.com/sudo-OMsharma/personabrain/cmd/personabrain/config"
	servecmder "github.com/sudo-OMsharma/personabrain/cmd/personabrain/serve"
	statuscmder "github.com/sudo-OMsharma/personabrain/cmd/personabrain/status"
	versioncmder "github.com/sudo-OMsharma/personabrain/cmd/personabrain/version"
	"github.com/sudo-OMsharma/personabrain/pkg/cliui"
)

const personabrainLongDesc string = `Personabrain serves persona-grounded chat over per-tenant document brains.

Run services using:
  personabrain serve       Run the HTTP API server
  personabrain status      Check a running server
  personabrain config      Manage persistent configuration`

const personabrainShortDesc string = "Personabrain - persona chat over document brains"

const quickstartDoc string = `# Personabrain quickstart

1. Create a brain:

` + "```" + `
curl -X POST localhost:8000/createbrains -d brainName=acme -d personality_name=nova
` + "```" + `

2. Upload documents (txt, pdf, docx, or audio):

` + "```" + `
curl -X POST localhost:8000/upload -F brainName=acme -F files=@notes.txt
` + "```" + `

3. Chat with the persona:

` + "```" + `
curl -X POST localhost:8000/chatbot \
  -d llm=openai -d brainName=acme \
  -d current_user_question="What do you know?"
` + "```" + `

Set OPENAI_API_KEYS (comma separated) in the environment or a .env file
before starting the server. See ` + "`personabrain config list`" + ` for the
full set of tunables.`

func NewPersonabrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "personabrain",
		Short: personabrainShortDesc,
		Long:  personabrainLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Directory holding config.toml (default: .personabrain/ resolution)")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())
	cmd.AddCommand(newDocsCmd())

	return cmd
}

func newDocsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "docs",
		Short: "Show the quickstart guide",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			rendered, err := cliui.RenderMarkdown(quickstartDoc)
			if err != nil {
				return err
			}
			fmt.Print(rendered)
			return nil
		},
	}
}
