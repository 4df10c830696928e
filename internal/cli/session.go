package cli

import (
	"fmt"

	"github.com/canonical/gomaas/pkg/bones"
	"github.com/canonical/gomaas/pkg/profiles"
)

// currentProfile loads the profile selected by --profile (or MAAS_PROFILE),
// falling back to the store's default.
func currentProfile() (*profiles.Store, *profiles.Profile, error) {
	store, err := profiles.Open()
	if err != nil {
		return nil, nil, err
	}
	if profileName != "" {
		profile, err := store.Load(profileName)
		if err != nil {
			return nil, nil, err
		}
		return store, profile, nil
	}
	profile, err := store.Default()
	if err != nil {
		return nil, nil, fmt.Errorf(
			"no profile selected; log in first or pass --profile: %w", err)
	}
	return store, profile, nil
}

// currentSession builds a session from the selected profile's cached
// description.
func currentSession() (*profiles.Profile, *bones.Session, error) {
	_, profile, err := currentProfile()
	if err != nil {
		return nil, nil, err
	}
	opts := sessionOptions()
	session, err := bones.FromProfile(profile, opts...)
	if err != nil {
		return nil, nil, err
	}
	return profile, session, nil
}

func sessionOptions() []bones.Option {
	var opts []bones.Option
	if insecure {
		opts = append(opts, bones.WithInsecure())
	}
	if verbose {
		opts = append(opts, bones.WithDebug())
	}
	return opts
}
