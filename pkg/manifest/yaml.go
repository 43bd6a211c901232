package manifest

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// OrderedMap serializes with keys sorted lexicographically, mirroring the
// source's BTreeMap<String, serde_yaml::Value> so canonical serialization
// (invariant I1) does not depend on Go's randomized map iteration order.
type OrderedMap map[string]interface{}

func (m OrderedMap) MarshalYAML() (interface{}, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range keys {
		keyNode := &yaml.Node{}
		if err := keyNode.Encode(k); err != nil {
			return nil, err
		}
		valNode := &yaml.Node{}
		if err := valNode.Encode(m[k]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, keyNode, valNode)
	}
	return node, nil
}

func (m *OrderedMap) UnmarshalYAML(node *yaml.Node) error {
	raw := map[string]interface{}{}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*m = raw
	return nil
}

// MarshalYAML renders Properties as the untagged union the source produces:
// either {id?, image, config?} or {application{...}}, never both.
func (p Properties) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	put := func(key string, val interface{}) error {
		k := &yaml.Node{}
		if err := k.Encode(key); err != nil {
			return err
		}
		v := &yaml.Node{}
		if err := v.Encode(val); err != nil {
			return err
		}
		node.Content = append(node.Content, k, v)
		return nil
	}

	if p.Application != nil {
		if err := put("application", p.Application); err != nil {
			return nil, err
		}
		return node, nil
	}

	if p.ID != "" {
		if err := put("id", p.ID); err != nil {
			return nil, err
		}
	}
	if err := put("image", p.Image); err != nil {
		return nil, err
	}
	if len(p.Config) > 0 {
		if err := put("config", p.Config); err != nil {
			return nil, err
		}
	}
	return node, nil
}

func (p *Properties) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		ID          string          `yaml:"id"`
		Image       string          `yaml:"image"`
		Config      []Config        `yaml:"config"`
		Application *ApplicationRef `yaml:"application"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	p.ID = raw.ID
	p.Image = raw.Image
	p.Config = raw.Config
	p.Application = raw.Application
	return nil
}

// MarshalYAML merges Trait.Type and Trait.Properties's concrete variant into
// the flat {type, properties{...}} shape the reconciler expects.
func (t Trait) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	put := func(key string, val interface{}) error {
		k := &yaml.Node{}
		if err := k.Encode(key); err != nil {
			return err
		}
		v := &yaml.Node{}
		if err := v.Encode(val); err != nil {
			return err
		}
		node.Content = append(node.Content, k, v)
		return nil
	}
	if err := put("type", t.Type); err != nil {
		return nil, err
	}

	switch t.Type {
	case "spreadscaler":
		if t.Properties.Instances == nil {
			return nil, fmt.Errorf("manifest: spreadscaler trait missing instances")
		}
		if err := put("properties", struct {
			Instances uint32 `yaml:"instances"`
		}{*t.Properties.Instances}); err != nil {
			return nil, err
		}
	case "link":
		if t.Properties.Link == nil {
			return nil, fmt.Errorf("manifest: link trait missing properties")
		}
		if err := put("properties", t.Properties.Link); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("manifest: unknown trait type %q", t.Type)
	}
	return node, nil
}

func (t *Trait) UnmarshalYAML(node *yaml.Node) error {
	var head struct {
		Type string `yaml:"type"`
	}
	if err := node.Decode(&head); err != nil {
		return err
	}
	t.Type = head.Type

	var body struct {
		Properties yaml.Node `yaml:"properties"`
	}
	if err := node.Decode(&body); err != nil {
		return err
	}

	switch head.Type {
	case "spreadscaler":
		var sp struct {
			Instances uint32 `yaml:"instances"`
		}
		if err := body.Properties.Decode(&sp); err != nil {
			return err
		}
		t.Properties = TraitProperties{Instances: &sp.Instances}
	case "link":
		var link LinkProperties
		if err := body.Properties.Decode(&link); err != nil {
			return err
		}
		t.Properties = TraitProperties{Link: &link}
	default:
		return fmt.Errorf("manifest: unknown trait type %q", head.Type)
	}
	return nil
}
