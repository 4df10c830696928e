package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/canonical/gomaas/pkg/bones"
	"github.com/canonical/gomaas/pkg/creds"
)

// newRefreshCmd creates and returns a new refresh command
func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Re-fetch the profile's cached API description",
		Long: `Fetch a fresh API description from the profile's MAAS and update the
cached copy when it has changed. Descriptions are compared by canonical
fingerprint, so key order and whitespace differences are ignored.`,
		RunE: runRefresh,
	}
}

// runRefresh handles the refresh command execution
func runRefresh(cmd *cobra.Command, args []string) error {
	store, profile, err := currentProfile()
	if err != nil {
		return err
	}
	credentials, err := creds.Parse(profile.Credentials)
	if err != nil {
		return err
	}
	fresh, err := bones.FetchDescription(
		cmd.Context(), profile.URL, credentials, insecure)
	if err != nil {
		return err
	}

	changed := true
	if len(profile.Description) > 0 {
		cached, err := bones.ParseDescription(profile.Description)
		if err == nil {
			cachedPrint, cachedErr := cached.Fingerprint()
			freshPrint, freshErr := fresh.Fingerprint()
			if cachedErr == nil && freshErr == nil {
				changed = cachedPrint != freshPrint
			}
		}
	}

	if changed {
		profile.Description = fresh.Raw()
		if err := store.Save(profile); err != nil {
			return err
		}
	}

	if jsonOutput {
		printJSON(map[string]any{
			"status":  "success",
			"profile": profile.Name,
			"changed": changed,
		})
		return nil
	}
	if changed {
		okLabel.Printf("✓ Description for %q updated\n", profile.Name)
	} else {
		fmt.Printf("Description for %q is already up to date\n", profile.Name)
	}
	return nil
}
