// Package statuscmder provides the status command for checking a running
// personabrain server.
package statuscmder

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sudo-OMsharma/personabrain/pkg/cliui"
)

type statusCommander struct {
	target string
}

const statusLongDesc string = `Check a running personabrain server.

Pings the server and lists the brains currently loaded in its memory cache.

Examples:
  personabrain status
  personabrain status --target http://brains.internal:8000`

const statusShortDesc string = "Check a running personabrain server"

func NewStatusCmd() *cobra.Command {
	cmder := &statusCommander{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	cmd.Flags().StringVarP(&cmder.target, "target", "t", "http://localhost:8000", "Base URL of the server")

	return cmd
}

type membrainsReply struct {
	Data []struct {
		Name            string   `json:"name"`
		PersonalityName string   `json:"personality_name"`
		Files           []string `json:"files"`
	} `json:"data"`
}

func (c *statusCommander) run() error {
	client := &http.Client{Timeout: 10 * time.Second}

	err := cliui.Step(os.Stdout, "pinging "+c.target, func() error {
		resp, err := client.Get(c.target + "/ping")
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		return err
	}

	resp, err := client.Get(c.target + "/membrains")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var reply membrainsReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return fmt.Errorf("decoding membrains response: %w", err)
	}

	if len(reply.Data) == 0 {
		fmt.Printf("\n  %s\n\n", cliui.DimStyle.Render("No brains loaded in memory."))
		return nil
	}

	fmt.Println()
	for _, b := range reply.Data {
		fmt.Printf("  %s  %s %s\n",
			cliui.KeyStyle.Render(b.Name),
			cliui.ValueStyle.Render(b.PersonalityName),
			cliui.DimStyle.Render(fmt.Sprintf("(%d files)", len(b.Files))),
		)
	}
	fmt.Println()

	return nil
}
