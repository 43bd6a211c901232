package manifest

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// PipelineNodeSettings is a kind-tagged sum type of per-node settings. Only
// in-http-webhook carries a typed payload today; every other kind's settings
// round-trip as an opaque raw document so unrecognized or future settings
// shapes are preserved rather than dropped.
type PipelineNodeSettings struct {
	Type            string               `json:"type" yaml:"type"`
	InHTTPWebhook   *InHTTPWebhookSettings `json:"-" yaml:"-"`
	Raw             json.RawMessage      `json:"-" yaml:"-"`
}

// InHTTPWebhookSettings is the typed settings payload for in-http-webhook nodes.
type InHTTPWebhookSettings struct {
	Method                string          `json:"method" yaml:"method"`
	ContentType           *string         `json:"contentType,omitempty" yaml:"contentType,omitempty"`
	RequestBodyJSONSchema json.RawMessage `json:"requestBodyJsonSchema,omitempty" yaml:"requestBodyJsonSchema,omitempty"`
}

// settingsEnvelope mirrors the wire shape {type, settings}.
type settingsEnvelope struct {
	Type     string          `json:"type"`
	Settings json.RawMessage `json:"settings"`
}

// MarshalJSON emits the {type, settings} tagged-union wire shape.
func (s PipelineNodeSettings) MarshalJSON() ([]byte, error) {
	env := settingsEnvelope{Type: s.Type}
	switch s.Type {
	case "in-http-webhook":
		if s.InHTTPWebhook != nil {
			raw, err := json.Marshal(s.InHTTPWebhook)
			if err != nil {
				return nil, err
			}
			env.Settings = raw
		}
	default:
		env.Settings = s.Raw
	}
	return json.Marshal(env)
}

// UnmarshalJSON parses the {type, settings} tagged-union wire shape.
func (s *PipelineNodeSettings) UnmarshalJSON(data []byte) error {
	var env settingsEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	s.Type = env.Type
	s.Raw = env.Settings
	if env.Type == "in-http-webhook" && len(env.Settings) > 0 {
		var typed InHTTPWebhookSettings
		if err := json.Unmarshal(env.Settings, &typed); err != nil {
			return err
		}
		s.InHTTPWebhook = &typed
	}
	return nil
}

// MarshalYAML and UnmarshalYAML round-trip the settings via the same JSON
// wire shape so a pipeline document accepted as YAML behaves identically to
// one accepted as JSON, per the admin HTTP contract.
func (s PipelineNodeSettings) MarshalYAML() (interface{}, error) {
	raw, err := s.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *PipelineNodeSettings) UnmarshalYAML(node *yaml.Node) error {
	var v interface{}
	if err := node.Decode(&v); err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.UnmarshalJSON(raw)
}
