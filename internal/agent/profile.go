package agent

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// The closed set of agent profiles. Profiles are data: a system prompt plus
// model settings, loaded once at startup from the YAML definitions file.
const (
	ProfileSpeechCommands  = "speech_commands"
	ProfileWebsiteSearch   = "website_search"
	ProfileFormInterpreter = "form_interpreter"
)

var requiredProfiles = []string{
	ProfileSpeechCommands,
	ProfileWebsiteSearch,
	ProfileFormInterpreter,
}

type Profile struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	System      string  `yaml:"system"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	// "text" or "audio"; the relay forwards both regardless, this only
	// documents what the profile is expected to produce.
	Modality string `yaml:"modality"`
}

type ProfileSet struct {
	profiles map[string]Profile
}

func LoadProfiles(path string) (*ProfileSet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Agents []Profile `yaml:"agents"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, err
	}

	set := &ProfileSet{profiles: make(map[string]Profile, len(doc.Agents))}
	for _, p := range doc.Agents {
		if p.Name == "" || p.System == "" {
			return nil, fmt.Errorf("agent profile missing name or system prompt: %+v", p)
		}
		set.profiles[p.Name] = p
	}
	for _, name := range requiredProfiles {
		if _, ok := set.profiles[name]; !ok {
			return nil, fmt.Errorf("agent profile %q not defined in %s", name, path)
		}
	}
	return set, nil
}

func (ps *ProfileSet) Get(name string) (Profile, bool) {
	p, ok := ps.profiles[name]
	return p, ok
}
