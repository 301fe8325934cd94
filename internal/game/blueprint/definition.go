package blueprint

import (
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/dominari/internal/core/models"
	"github.com/zeusync/dominari/internal/game/components"
)

// Definition is the YAML form of a blueprint. Only the listed components are attached.
// Links that are filled in at instantiation (owner, location, occupant, feature)
// are not part of a definition.
type Definition struct {
	Name             string                       `yaml:"name"`
	Metadata         *components.Metadata         `yaml:"metadata,omitempty"`
	Value            *components.Value            `yaml:"value,omitempty"`
	LastUsed         *components.LastUsed         `yaml:"last_used,omitempty"`
	FeatureRank      *components.FeatureRank      `yaml:"feature_rank,omitempty"`
	Range            *components.Range            `yaml:"range,omitempty"`
	DropTable        []string                     `yaml:"drop_table,omitempty"`
	Uses             *components.Uses             `yaml:"uses,omitempty"`
	HealingPower     *components.HealingPower     `yaml:"healing_power,omitempty"`
	Health           *components.Health           `yaml:"health,omitempty"`
	Damage           *components.Damage           `yaml:"damage,omitempty"`
	TroopClass       *components.TroopClass       `yaml:"troop_class,omitempty"`
	Active           *components.Active           `yaml:"active,omitempty"`
	Cost             *components.Cost             `yaml:"cost,omitempty"`
	OffchainMetadata *components.OffchainMetadata `yaml:"offchain_metadata,omitempty"`
}

type definitionFile struct {
	Blueprints []Definition `yaml:"blueprints"`
}

func (d Definition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("blueprint name is required")
	}
	if len(d.Name) > MaxNameLength {
		return fmt.Errorf("blueprint %q: name longer than %d bytes", d.Name, MaxNameLength)
	}
	if len(d.DropTable) > components.DropTableMaxSize {
		return fmt.Errorf("blueprint %q: drop table longer than %d", d.Name, components.DropTableMaxSize)
	}
	if d.Damage != nil && d.Damage.MinDamage > d.Damage.MaxDamage {
		return fmt.Errorf("blueprint %q: min damage above max damage", d.Name)
	}
	return nil
}

// Components serializes the definition against resolved schema keys.
func (d Definition) Components(keys *components.Keys) (*models.ComponentSet, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	set := models.NewComponentSet()
	add := func(key models.ComponentKey, c components.Component) error {
		if v, ok := c.(components.Validator); ok {
			if err := v.Validate(); err != nil {
				return fmt.Errorf("blueprint %q: %w", d.Name, err)
			}
		}
		components.Set(set, key, c)
		return nil
	}

	type slot struct {
		key models.ComponentKey
		c   components.Component
	}
	var slots []slot
	if d.Metadata != nil {
		slots = append(slots, slot{keys.Metadata, *d.Metadata})
	}
	if d.Value != nil {
		slots = append(slots, slot{keys.Value, *d.Value})
	}
	if d.LastUsed != nil {
		slots = append(slots, slot{keys.LastUsed, *d.LastUsed})
	}
	if d.FeatureRank != nil {
		slots = append(slots, slot{keys.FeatureRank, *d.FeatureRank})
	}
	if d.Range != nil {
		slots = append(slots, slot{keys.Range, *d.Range})
	}
	if len(d.DropTable) > 0 {
		table := components.DropTable{}
		for _, name := range d.DropTable {
			table.Blueprints = append(table.Blueprints, KeyFor(name))
		}
		slots = append(slots, slot{keys.DropTable, table})
	}
	if d.Uses != nil {
		slots = append(slots, slot{keys.Uses, *d.Uses})
	}
	if d.HealingPower != nil {
		slots = append(slots, slot{keys.HealingPower, *d.HealingPower})
	}
	if d.Health != nil {
		slots = append(slots, slot{keys.Health, *d.Health})
	}
	if d.Damage != nil {
		slots = append(slots, slot{keys.Damage, *d.Damage})
	}
	if d.TroopClass != nil {
		slots = append(slots, slot{keys.TroopClass, *d.TroopClass})
	}
	if d.Active != nil {
		slots = append(slots, slot{keys.Active, *d.Active})
	}
	if d.Cost != nil {
		slots = append(slots, slot{keys.Cost, *d.Cost})
	}
	if d.OffchainMetadata != nil {
		slots = append(slots, slot{keys.OffchainMetadata, *d.OffchainMetadata})
	}

	for _, s := range slots {
		if err := add(s.key, s.c); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// LoadYAML decodes a document of the form `blueprints: [...]`.
func LoadYAML(r io.Reader) ([]Definition, error) {
	var file definitionFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode blueprints: %w", err)
	}
	seen := make(map[string]struct{}, len(file.Blueprints))
	for _, d := range file.Blueprints {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[d.Name]; dup {
			return nil, fmt.Errorf("blueprint %q defined twice", d.Name)
		}
		seen[d.Name] = struct{}{}
	}
	return file.Blueprints, nil
}

// LoadDir reads every .yaml/.yml file in fsys root, in name order.
func LoadDir(fsys fs.FS) ([]Definition, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read blueprint dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		ext := path.Ext(e.Name())
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	var out []Definition
	for _, name := range files {
		f, err := fsys.Open(name)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defs, err := LoadYAML(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out = append(out, defs...)
	}
	return out, nil
}
