// Command vaultctl is the admin CLI for vaultd's control plane
// (internal/controlapi), grounded on the teacher's cmd/dfsctl.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/manifoldco/promptui"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/cloudvault/vaultd/internal/controlapi/apiclient"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var serverURL, token string

	root := &cobra.Command{
		Use:   "vaultctl",
		Short: "vaultctl is the admin client for a vaultd server",
	}
	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9001", "vaultd control-plane URL")
	root.PersistentFlags().StringVar(&token, "token", os.Getenv("VAULTCTL_TOKEN"), "bearer token (defaults to $VAULTCTL_TOKEN)")

	root.AddCommand(loginCmd(&serverURL))
	root.AddCommand(sessionsCmd(&serverURL, &token))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version)
			return nil
		},
	})

	return root
}

func loginCmd(serverURL *string) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with the control plane and print an access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				u, err := (&promptui.Prompt{Label: "Username"}).Run()
				if err != nil {
					return fmt.Errorf("read username: %w", err)
				}
				username = u
			}
			password, err := (&promptui.Prompt{Label: "Password", Mask: '*'}).Run()
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}

			client := apiclient.New(*serverURL)
			tok, err := client.Login(username, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			fmt.Println(tok.AccessToken)
			fmt.Fprintf(os.Stderr, "token valid until %s\n", tok.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "admin username (prompted if omitted)")
	return cmd
}

func sessionsCmd(serverURL, token *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and manage live server sessions",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every live session",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := apiclient.New(*serverURL).WithToken(*token)
			sessions, err := client.ListSessions()
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "User", "Client", "State", "Idle"})
			table.SetAutoWrapText(false)
			table.SetBorder(false)
			table.SetHeaderLine(false)
			table.SetCenterSeparator("")
			table.SetColumnSeparator("")
			table.SetRowSeparator("")
			table.SetTablePadding("  ")
			for _, s := range sessions {
				table.Append([]string{s.ID, s.UserID, s.ClientAddr, s.State, humanize.Time(nowMinus(s.IdleFor))})
			}
			table.Render()
			return nil
		},
	}

	kick := &cobra.Command{
		Use:   "kick <session-id>",
		Short: "Force-close a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := apiclient.New(*serverURL).WithToken(*token)
			if err := client.KickSession(args[0]); err != nil {
				return err
			}
			fmt.Println("kicked", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, kick)
	return cmd
}

// nowMinus turns a session's reported idle duration back into a wall-clock
// timestamp so humanize.Time can render it ("3 seconds ago" etc.).
func nowMinus(d time.Duration) time.Time {
	return time.Now().Add(-d)
}
