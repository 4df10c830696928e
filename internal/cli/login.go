package cli

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/avast/retry-go/v4"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/canonical/gomaas/pkg/bones"
	"github.com/canonical/gomaas/pkg/profiles"
)

// newLoginCmd creates and returns a new login command
func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <name> <url>",
		Short: "Log in to a MAAS installation and save a profile",
		Long: `Log in to a MAAS region controller and save a named profile.

With --username (and --password, prompted for when omitted) the command
exchanges the credentials for an API token. With --apikey it uses an
existing token; an empty --apikey makes an anonymous profile. The saved
profile caches the server's API description so later commands need no
extra round-trip.

Example:
  maas login prod http://maas.example.com:5240/MAAS/ --username admin
  maas login lab http://lab:5240/MAAS/ --apikey 'consumer:token:secret'`,
		Args: cobra.ExactArgs(2),
		RunE: runLogin,
	}

	cmd.Flags().String("username", "", "User name to log in with")
	cmd.Flags().String("password", "", "Password (prompted for when omitted)")
	cmd.Flags().String("apikey", "", "API token to connect with instead of logging in")
	return cmd
}

// runLogin handles the login command execution
func runLogin(cmd *cobra.Command, args []string) error {
	name, url := args[0], args[1]
	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")
	apikey, _ := cmd.Flags().GetString("apikey")

	if username != "" && cmd.Flags().Changed("apikey") {
		return fmt.Errorf("--username and --apikey are mutually exclusive")
	}
	if username != "" && password == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Password for %s: ", username)
		entered, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return fmt.Errorf("cannot read password: %w", err)
		}
		password = string(entered)
	}

	ctx := cmd.Context()
	opts := sessionOptions()

	// Transient connection failures are retried; authentication failures
	// and unsupported-server conditions are not.
	profile, err := retry.DoWithData(
		func() (*profiles.Profile, error) {
			var profile *profiles.Profile
			var err error
			if username != "" {
				profile, _, err = bones.Login(ctx, url, username, password, opts...)
			} else {
				profile, _, err = bones.Connect(ctx, url, apikey, opts...)
			}
			return profile, err
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.RetryIf(func(err error) bool {
			var callErr *bones.CallError
			if errors.As(err, &callErr) {
				return false
			}
			return !errors.Is(err, bones.ErrLogin) &&
				!errors.Is(err, bones.ErrConnect)
		}),
	)
	if err != nil {
		return err
	}
	profile.Name = name

	store, err := profiles.Open()
	if err != nil {
		return err
	}
	if err := store.Save(profile); err != nil {
		return err
	}
	if err := store.SetDefault(name); err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]string{
			"status":  "success",
			"profile": name,
			"url":     profile.URL,
		})
	} else {
		okLabel.Println("✓ Login successful")
		fmt.Printf("Profile %q saved and selected (%s)\n", name, profile.URL)
	}
	return nil
}

// newLogoutCmd creates and returns a new logout command
func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout <name>",
		Short: "Delete a saved profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := profiles.Open()
			if err != nil {
				return err
			}
			if err := store.Delete(args[0]); err != nil {
				return err
			}
			if jsonOutput {
				printJSON(map[string]string{
					"status":  "success",
					"profile": args[0],
				})
			} else {
				okLabel.Printf("✓ Profile %q deleted\n", args[0])
			}
			return nil
		},
	}
}
