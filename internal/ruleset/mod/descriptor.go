// Package mod describes mods (rule data packages): their manifests, version
// gating, discovery on disk, and the order in which they are loaded.
package mod

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the name of the per-mod manifest.
const ManifestFile = "metadata.yml"

// Manifest is the raw YAML form of metadata.yml.
type Manifest struct {
	ID                       string `yaml:"id"`
	Name                     string `yaml:"name"`
	Version                  string `yaml:"version"`
	Description              string `yaml:"description"`
	Author                   string `yaml:"author"`
	Master                   string `yaml:"master"`
	IsMaster                 bool   `yaml:"isMaster"`
	RequiredMasterModVersion string `yaml:"requiredMasterModVersion"`
	RequiredExtendedEngine   string `yaml:"requiredExtendedEngine"`
	RequiredExtendedVersion  string `yaml:"requiredExtendedVersion"`
	ReservedSpace            *int   `yaml:"reservedSpace"`
}

// Descriptor is the immutable per-mod metadata the loader works from.
//
// Invariant: ID is non-empty; ReservedSpace >= 1 before clamping.
type Descriptor struct {
	ID          string
	Name        string
	Version     Version
	Description string
	Author      string
	// Master names the mod this one builds on: the master itself or another
	// non-master mod that loads before it.
	Master                string
	IsMaster              bool
	RequiredMasterVersion Version
	RequiredEngine        string
	RequiredEngineVersion Version
	ReservedSpace         int
	// Path is the mod's root directory; empty for in-memory descriptors.
	Path string
}

// Standalone reports whether the mod declares no master and so works on top
// of any master.
func (d *Descriptor) Standalone() bool {
	return !d.IsMaster && d.Master == ""
}

// String returns "id (version)".
func (d *Descriptor) String() string {
	if d.Version.IsZero() {
		return d.ID
	}
	return fmt.Sprintf("%s (%s)", d.ID, d.Version)
}

// FromManifest converts a parsed manifest into a Descriptor. dir supplies the
// default id when the manifest omits one.
//
// Postcondition: Returns a Descriptor with non-empty ID, or an error.
func FromManifest(m Manifest, dir string) (*Descriptor, error) {
	id := strings.TrimSpace(m.ID)
	if id == "" {
		id = filepath.Base(dir)
	}
	if id == "" || id == "." || id == string(filepath.Separator) {
		return nil, errors.New("mod id must not be empty")
	}
	reserved := 1
	if m.ReservedSpace != nil {
		reserved = *m.ReservedSpace
	}
	name := m.Name
	if name == "" {
		name = id
	}
	return &Descriptor{
		ID:                    id,
		Name:                  name,
		Version:               ParseVersion(m.Version),
		Description:           m.Description,
		Author:                m.Author,
		Master:                strings.TrimSpace(m.Master),
		IsMaster:              m.IsMaster,
		RequiredMasterVersion: ParseVersion(m.RequiredMasterModVersion),
		RequiredEngine:        m.RequiredExtendedEngine,
		RequiredEngineVersion: ParseVersion(m.RequiredExtendedVersion),
		ReservedSpace:         reserved,
		Path:                  dir,
	}, nil
}

// ParseManifest decodes manifest YAML. Unknown keys are ignored so that
// manifests written for newer engines still load.
//
// Postcondition: Returns a Descriptor or a non-nil error naming dir.
func ParseManifest(data []byte, dir string) (*Descriptor, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing manifest in %s: %w", dir, err)
	}
	d, err := FromManifest(m, dir)
	if err != nil {
		return nil, fmt.Errorf("manifest in %s: %w", dir, err)
	}
	return d, nil
}

// LoadManifest reads dir/metadata.yml.
//
// Precondition: dir must be a readable directory.
func LoadManifest(dir string) (*Descriptor, error) {
	path := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ParseManifest(data, dir)
}
