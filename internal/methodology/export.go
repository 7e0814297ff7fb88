package methodology

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// MarshalYAML renders the tree as a portable YAML document. Database ids are
// left out so the document can be imported into another instance.
func MarshalYAML(t Tree) ([]byte, error) {
	out, err := yaml.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal methodology %s: %w", t.Version, err)
	}
	return out, nil
}

// UnmarshalYAML parses a document produced by MarshalYAML and validates every
// element of it.
func UnmarshalYAML(data []byte) (Tree, error) {
	var t Tree
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Tree{}, fmt.Errorf("%w: failed to parse methodology document: %v", ErrInvalid, err)
	}
	if err := t.Validate(); err != nil {
		return Tree{}, err
	}
	return t, nil
}

// Validate runs every authoring rule over the tree.
func (t *Tree) Validate() error {
	if err := ValidateMethodology(t.Methodology); err != nil {
		return err
	}
	for _, p := range t.Pillars {
		if err := ValidatePillar(p); err != nil {
			return err
		}
		for _, c := range p.Criteria {
			if err := ValidateCriterion(c); err != nil {
				return err
			}
			for _, r := range c.Ranges {
				if err := ValidateRange(c.Type, r); err != nil {
					return fmt.Errorf("criterion %q: %w", c.Name, err)
				}
			}
		}
	}
	return nil
}
