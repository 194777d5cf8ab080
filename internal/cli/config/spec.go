package config

import "fmt"

// CLIConfig is the aci-cli profile file.
type CLIConfig struct {
	// DefaultOutput is used when --output is not given: table, json or yaml.
	DefaultOutput string `yaml:"default_output"`

	// CurrentProfile names the profile used when --profile is not given.
	CurrentProfile string `yaml:"current_profile,omitempty"`

	Profiles map[string]Profile `yaml:"profiles"`
}

// Profile holds the connection settings of one server.
type Profile struct {
	Server string `yaml:"server"`
	ID     string `yaml:"id,omitempty"`
	Token  string `yaml:"token,omitempty"`
}

// DefaultServer is the address used when neither flag nor profile sets one.
const DefaultServer = "ws://127.0.0.1:8765/"

// Default returns an empty configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		DefaultOutput: "table",
		Profiles:      make(map[string]Profile),
	}
}

// Profile returns the named profile, or the current one when name is
// empty. A missing current profile yields the zero Profile.
func (c *CLIConfig) Profile(name string) (Profile, error) {
	if name == "" {
		name = c.CurrentProfile
		if name == "" {
			return Profile{}, nil
		}
	}
	p, ok := c.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("profile %q not found", name)
	}
	return p, nil
}

// Validate checks field values.
func (c *CLIConfig) Validate() error {
	switch c.DefaultOutput {
	case "", "table", "json", "yaml":
	default:
		return fmt.Errorf("default_output %q: must be table, json or yaml", c.DefaultOutput)
	}
	if c.CurrentProfile != "" {
		if _, ok := c.Profiles[c.CurrentProfile]; !ok {
			return fmt.Errorf("current_profile %q is not defined", c.CurrentProfile)
		}
	}
	for name, p := range c.Profiles {
		if p.Server == "" {
			return fmt.Errorf("profile %q: server is required", name)
		}
	}
	return nil
}
