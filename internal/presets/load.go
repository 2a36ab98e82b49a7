package presets

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ginjaninja78/diamond-metrics/internal/config"
)

//go:embed data/*.json
var defaultData embed.FS

// Load resolves the configured preset source:
//   - a workbook when presets.workbook is set
//   - the two JSON files when presets.sieve_file/weight_file are set
//   - the embedded defaults otherwise
func Load(settings config.PresetSettings) (*Index, error) {
	switch {
	case settings.Workbook != "":
		idx, err := LoadWorkbook(settings.Workbook)
		if err != nil {
			return nil, err
		}
		idx.Source = settings.Workbook
		return idx, nil

	case settings.SieveFile != "" || settings.WeightFile != "":
		sieve, err := LoadJSONFile(settings.SieveFile)
		if err != nil {
			return nil, fmt.Errorf("sieve presets: %w", err)
		}
		weight, err := LoadJSONFile(settings.WeightFile)
		if err != nil {
			return nil, fmt.Errorf("weight presets: %w", err)
		}
		idx := NewIndex(sieve, weight)
		idx.Source = settings.SieveFile + ", " + settings.WeightFile
		return idx, nil

	default:
		return Default()
	}
}

// Default returns the tables embedded in the binary.
func Default() (*Index, error) {
	sieve, err := loadEmbedded("data/sieve.json")
	if err != nil {
		return nil, err
	}
	weight, err := loadEmbedded("data/weight.json")
	if err != nil {
		return nil, err
	}
	idx := NewIndex(sieve, weight)
	idx.Source = "embedded"
	return idx, nil
}

func loadEmbedded(name string) (Table, error) {
	f, err := defaultData.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded presets %s: %w", name, err)
	}
	defer f.Close()
	return LoadJSON(f)
}

// LoadJSONFile reads a table from a JSON file.
func LoadJSONFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open presets: %w", err)
	}
	defer f.Close()

	t, err := LoadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// LoadJSON decodes {"Shape": {"size key": "value", ...}, ...}. Values may be
// written as JSON strings or numbers; numbers keep their literal spelling.
func LoadJSON(r io.Reader) (Table, error) {
	var raw map[string]map[string]json.RawMessage

	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse presets: %w", err)
	}

	t := make(Table, len(raw))
	for shape, entries := range raw {
		t[shape] = make(map[string]string, len(entries))
		for key, msg := range entries {
			v, err := rawValue(msg)
			if err != nil {
				return nil, fmt.Errorf("shape %q key %q: %w", shape, key, err)
			}
			t[shape][key] = v
		}
	}
	return t, nil
}

func rawValue(msg json.RawMessage) (string, error) {
	if len(msg) > 0 && msg[0] == '"' {
		var s string
		if err := json.Unmarshal(msg, &s); err != nil {
			return "", err
		}
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(msg, &n); err != nil {
		return "", fmt.Errorf("value must be a string or number")
	}
	return n.String(), nil
}
