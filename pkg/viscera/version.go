package viscera

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/mitchellh/mapstructure"
)

// Version describes the remote installation: its release version and the
// capability strings feature detection keys off.
type Version struct {
	Version      *semver.Version
	Subversion   string
	Capabilities []string
}

// HasCapability reports whether the installation advertises a capability.
func (v *Version) HasCapability(name string) bool {
	for _, capability := range v.Capabilities {
		if capability == name {
			return true
		}
	}
	return false
}

type versionDocument struct {
	Version      string   `mapstructure:"version"`
	Subversion   string   `mapstructure:"subversion"`
	Capabilities []string `mapstructure:"capabilities"`
}

// ReadVersion fetches and parses the installation's version information.
// The version endpoint is anonymous, so this works without credentials.
func ReadVersion(ctx context.Context, origin *Origin) (*Version, error) {
	handler, err := origin.session.Handler("Version")
	if err != nil {
		return nil, err
	}
	action, err := handler.Action("read")
	if err != nil {
		return nil, err
	}
	result, err := action.Call(ctx, nil)
	if err != nil {
		return nil, err
	}
	var doc versionDocument
	if err := mapstructure.Decode(result.Data, &doc); err != nil {
		return nil, fmt.Errorf("cannot decode version document: %w", err)
	}
	parsed, err := semver.NewVersion(doc.Version)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q: %w", doc.Version, err)
	}
	return &Version{
		Version:      parsed,
		Subversion:   doc.Subversion,
		Capabilities: doc.Capabilities,
	}, nil
}
