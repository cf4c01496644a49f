package plugins

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/linht/dw1000-manager/dw1000"
)

// Profile is a named sequence of register writes
type Profile struct {
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description" json:"description,omitempty"`
	Writes      []ProfileWrite `yaml:"writes" json:"writes"`
}

// ProfileWrite is one register write of a profile
type ProfileWrite struct {
	Register string `yaml:"register" json:"register"`
	Value    string `yaml:"value" json:"value"`
}

type profileFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// LoadProfiles reads and validates a profiles file
func LoadProfiles(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles: %w", err)
	}
	return ParseProfiles(data)
}

// ParseProfiles decodes profiles and checks every write against the
// register map, so a bad profile is rejected before touching the device.
func ParseProfiles(data []byte) ([]Profile, error) {
	var f profileFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse profiles: %w", err)
	}

	seen := make(map[string]bool)
	for _, p := range f.Profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("profile without name")
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("duplicate profile %q", p.Name)
		}
		seen[p.Name] = true

		for i, w := range p.Writes {
			if _, _, err := w.resolve(); err != nil {
				return nil, fmt.Errorf("profile %q write %d: %w", p.Name, i, err)
			}
		}
	}

	return f.Profiles, nil
}

func (w ProfileWrite) resolve() (uint8, []byte, error) {
	addr, err := ParseRegister(w.Register)
	if err != nil {
		return 0, nil, err
	}
	data, err := ParseHexBytes(w.Value)
	if err != nil {
		return 0, nil, err
	}
	if len(data) == 0 {
		return 0, nil, fmt.Errorf("register %s: %w", w.Register, dw1000.ErrEmptyBuffer)
	}
	if err := dw1000.ValidateAccess(addr, len(data)); err != nil {
		return 0, nil, fmt.Errorf("register %s: %w", w.Register, err)
	}
	return addr, data, nil
}

// FindProfile looks up a profile by name
func FindProfile(profiles []Profile, name string) (Profile, bool) {
	for _, p := range profiles {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}

// ApplyProfile performs the writes of p in order and returns how many
// succeeded. The first failure stops the sequence; earlier writes stay.
func ApplyProfile(dev *dw1000.Device, p Profile) (int, error) {
	for i, w := range p.Writes {
		addr, data, err := w.resolve()
		if err != nil {
			return i, fmt.Errorf("profile %q write %d: %w", p.Name, i, err)
		}
		if err := dev.WriteRegister(addr, data); err != nil {
			return i, fmt.Errorf("profile %q write %d: %w", p.Name, i, err)
		}
	}
	return len(p.Writes), nil
}
