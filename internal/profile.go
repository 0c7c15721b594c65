package internal

import (
	"fmt"
	"os"

	"github.com/sensiblebit/certparse"
	"gopkg.in/yaml.v3"
)

// Profile is one named parsing configuration from the YAML file.
type Profile struct {
	Name                            string `yaml:"name"`
	AllowInvalidSerialNumbers       bool   `yaml:"allowInvalidSerialNumbers,omitempty"`
	RejectUnknownCriticalExtensions bool   `yaml:"rejectUnknownCriticalExtensions,omitempty"`
}

// profilesYAML represents the full YAML structure with a default selection
// and the profile list.
type profilesYAML struct {
	DefaultProfile string    `yaml:"defaultProfile,omitempty"`
	Profiles       []Profile `yaml:"profiles"`
}

// ProfileSet holds named parsing profiles and the default selection.
type ProfileSet struct {
	defaultName string
	byName      map[string]Profile
}

// BuiltinProfiles returns the profile set used when no config file is given:
// "strict" (all checks on, the zero Options) and "lenient" (serial number
// checks relaxed).
func BuiltinProfiles() *ProfileSet {
	set := &ProfileSet{defaultName: "strict", byName: map[string]Profile{}}
	set.byName["strict"] = Profile{Name: "strict"}
	set.byName["lenient"] = Profile{Name: "lenient", AllowInvalidSerialNumbers: true}
	return set
}

// LoadProfiles loads parsing profiles from the specified YAML file. Profiles
// defined in the file shadow the built-in ones of the same name.
func LoadProfiles(path string) (*ProfileSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg profilesYAML
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing profile config: %w", err)
	}
	if len(cfg.Profiles) == 0 {
		return nil, fmt.Errorf("profile config %s defines no profiles", path)
	}

	set := BuiltinProfiles()
	for _, p := range cfg.Profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("profile config %s contains a profile without a name", path)
		}
		set.byName[p.Name] = p
	}
	if cfg.DefaultProfile != "" {
		if _, ok := set.byName[cfg.DefaultProfile]; !ok {
			return nil, fmt.Errorf("default profile %q is not defined", cfg.DefaultProfile)
		}
		set.defaultName = cfg.DefaultProfile
	}
	return set, nil
}

// Names returns the defined profile names in unspecified order.
func (s *ProfileSet) Names() []string {
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	return names
}

// Options resolves a profile name to parser options. An empty name selects
// the default profile.
func (s *ProfileSet) Options(name string) (certparse.Options, error) {
	if name == "" {
		name = s.defaultName
	}
	p, ok := s.byName[name]
	if !ok {
		return certparse.Options{}, fmt.Errorf("unknown profile %q", name)
	}
	return certparse.Options{
		AllowInvalidSerialNumbers:       p.AllowInvalidSerialNumbers,
		RejectUnknownCriticalExtensions: p.RejectUnknownCriticalExtensions,
	}, nil
}
