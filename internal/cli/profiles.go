package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/canonical/gomaas/pkg/profiles"
)

// newProfilesCmd creates and returns a new profiles command
func newProfilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List saved profiles",
		RunE:  runProfiles,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "select <name>",
		Short: "Make a saved profile the default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := profiles.Open()
			if err != nil {
				return err
			}
			if err := store.SetDefault(args[0]); err != nil {
				return err
			}
			if jsonOutput {
				printJSON(map[string]string{
					"status":  "success",
					"profile": args[0],
				})
			} else {
				okLabel.Printf("✓ Profile %q selected\n", args[0])
			}
			return nil
		},
	})
	return cmd
}

// runProfiles handles the profiles command execution
func runProfiles(cmd *cobra.Command, args []string) error {
	store, err := profiles.Open()
	if err != nil {
		return err
	}
	names, err := store.List()
	if err != nil {
		return err
	}
	defaultName, err := store.DefaultName()
	if err != nil {
		return err
	}

	if jsonOutput {
		type entry struct {
			Name    string `json:"name"`
			URL     string `json:"url"`
			Default bool   `json:"default"`
		}
		listed := make([]entry, 0, len(names))
		for _, name := range names {
			profile, err := store.Load(name)
			if err != nil {
				return err
			}
			listed = append(listed, entry{
				Name:    name,
				URL:     profile.URL,
				Default: name == defaultName,
			})
		}
		printJSON(listed)
		return nil
	}

	if len(names) == 0 {
		fmt.Println("No profiles saved. Log in with \"maas login\" first.")
		return nil
	}
	for _, name := range names {
		profile, err := store.Load(name)
		if err != nil {
			return err
		}
		marker := " "
		if name == defaultName {
			marker = "*"
		}
		fmt.Printf("%s %-20s %s\n", marker, name, profile.URL)
	}
	return nil
}
