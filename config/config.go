package config

import (
	"encoding/json"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// SECTION is the client configuration section holding the settings.
const SECTION = "mapToolScriptServer"

const (
	DEFAULT_MAX_PROBLEMS = 1000
	DEFAULT_WIKI_ROOT    = "https://wiki.rptools.info/index.php"
)

type Settings struct {
	MaxNumberOfProblems int    `json:"maxNumberOfProblems" toml:"max_number_of_problems"`
	WikiURIRoot         string `json:"wikiUriRoot" toml:"wiki_uri_root"`
	FuzzyCompletion     bool   `json:"fuzzyCompletion" toml:"fuzzy_completion"`
}

func Default() Settings {
	return Settings{
		MaxNumberOfProblems: DEFAULT_MAX_PROBLEMS,
		WikiURIRoot:         DEFAULT_WIKI_ROOT,
	}
}

// Load reads settings from a TOML file. Keys missing from the file keep
// their default value.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, errors.Wrapf(err, "read config %s", path)
	}
	settings, err := Decode(string(data))
	if err != nil {
		return Settings{}, errors.Wrapf(err, "load config %s", path)
	}
	return settings, nil
}

// Write encodes settings as TOML, the format Load reads.
func Write(w io.Writer, settings Settings) error {
	return errors.Wrap(toml.NewEncoder(w).Encode(settings), "encode settings")
}

func Decode(data string) (Settings, error) {
	var settings Settings
	meta, err := toml.Decode(data, &settings)
	if err != nil {
		return Settings{}, errors.Wrap(err, "decode settings")
	}

	applyDefaults(&settings, meta)
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

func applyDefaults(settings *Settings, meta toml.MetaData) {
	if !meta.IsDefined("max_number_of_problems") {
		settings.MaxNumberOfProblems = DEFAULT_MAX_PROBLEMS
	}
	if strings.TrimSpace(settings.WikiURIRoot) == "" {
		settings.WikiURIRoot = DEFAULT_WIKI_ROOT
	}
}

func (s Settings) Validate() error {
	if s.MaxNumberOfProblems < 0 {
		return errors.Errorf("max_number_of_problems must not be negative, got %d", s.MaxNumberOfProblems)
	}
	u, err := url.Parse(s.WikiURIRoot)
	if err != nil {
		return errors.Wrap(err, "wiki_uri_root")
	}
	if !u.IsAbs() {
		return errors.Errorf("wiki_uri_root must be an absolute URL, got %q", s.WikiURIRoot)
	}
	return nil
}

// FromJSON decodes a settings object sent by the client on top of base.
// Invalid results fall back to base.
func FromJSON(raw json.RawMessage, base Settings) (Settings, error) {
	settings := base
	if len(raw) == 0 || string(raw) == "null" {
		return settings, nil
	}
	if err := json.Unmarshal(raw, &settings); err != nil {
		return base, errors.Wrap(err, "decode client settings")
	}
	if strings.TrimSpace(settings.WikiURIRoot) == "" {
		settings.WikiURIRoot = base.WikiURIRoot
	}
	if err := settings.Validate(); err != nil {
		return base, err
	}
	return settings, nil
}
