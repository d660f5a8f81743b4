package cfg

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/veni-vici/app/discover"
)

// BansFile is the on-disk shape of preset bans:
//
//	bans:
//	  - field: culture
//	    value: Chinese
type BansFile struct {
	Bans []discover.BanEntry `yaml:"bans"`
}

// LoadBans reads and validates a preset ban file. An empty path yields no
// bans. Duplicates under ban equality are collapsed, first one wins.
func LoadBans(path string) (discover.BanList, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var file BansFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var list discover.BanList
	for i, entry := range file.Bans {
		if !entry.Field.Valid() {
			return nil, fmt.Errorf("invalid ban field at index %d: %s", i, entry.Field)
		}
		if strings.TrimSpace(entry.Value) == "" {
			return nil, fmt.Errorf("ban at index %d must have a value", i)
		}
		list, _ = list.Add(entry)
	}

	return list, nil
}
