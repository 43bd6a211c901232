package manifest

import "gopkg.in/yaml.v3"

// MarshalCanonicalYAML renders an Application with the stable key order
// required by invariant I1 (compilation determinism): struct field order is
// fixed by declaration, map-typed fields (annotations, OrderedMap configs)
// sort their keys, and the untagged union fields never emit both variants.
func MarshalCanonicalYAML(app Application) ([]byte, error) {
	return yaml.Marshal(app)
}

// UnmarshalApplication parses a canonical (or any well-formed) YAML
// application manifest back into an Application, used by the
// pipeline-to-manifest-to-YAML-to-parsed-manifest round-trip law (§8).
func UnmarshalApplication(data []byte) (Application, error) {
	var app Application
	if err := yaml.Unmarshal(data, &app); err != nil {
		return Application{}, err
	}
	return app, nil
}
