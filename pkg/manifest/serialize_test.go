package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMarshalCanonicalYAML_StableKeyOrder asserts OrderedMap keys serialize
// sorted regardless of insertion order, the determinism invariant compile
// callers rely on to compare manifests byte-for-byte.
func TestMarshalCanonicalYAML_StableKeyOrder(t *testing.T) {
	app := Application{
		APIVersion: "core.oam.dev/v1beta1",
		Kind:       "Application",
		Metadata:   Metadata{Name: "acme-orders"},
		Spec: Spec{
			Components: []Component{{
				Name: "webhook",
				Type: "component",
				Properties: Properties{
					ID:    "acme_orders-webhook",
					Image: "ghcr.io/acme/nodes/in-http:0.1.6",
					Config: []Config{{
						Name:       "webhook-config-v1",
						Properties: OrderedMap{"zebra": "z", "alpha": "a", "middle": "m"},
					}},
				},
			}},
		},
	}

	out1, err := MarshalCanonicalYAML(app)
	require.NoError(t, err)
	out2, err := MarshalCanonicalYAML(app)
	require.NoError(t, err)
	assert.Equal(t, string(out1), string(out2))

	idxAlpha := indexOf(t, string(out1), "alpha:")
	idxMiddle := indexOf(t, string(out1), "middle:")
	idxZebra := indexOf(t, string(out1), "zebra:")
	assert.True(t, idxAlpha < idxMiddle && idxMiddle < idxZebra, "OrderedMap keys must serialize lexicographically sorted")
}

// TestApplicationRoundTrip covers the pipeline-to-manifest-to-YAML-to-parsed
// round trip (§8): marshal then unmarshal reproduces an equivalent value.
func TestApplicationRoundTrip(t *testing.T) {
	original := Application{
		APIVersion: "core.oam.dev/v1beta1",
		Kind:       "Application",
		Metadata: Metadata{
			Name:        "acme-providers",
			Annotations: map[string]string{"version": "0.8.0"},
		},
		Spec: Spec{
			Components: []Component{
				{
					Name: "messaging-nats",
					Type: "capability",
					Properties: Properties{
						Application: &ApplicationRef{Name: "acme-providers", Component: "messaging-nats"},
					},
					Traits: []Trait{
						NewSpreadscaler(1),
						NewLink(LinkProperties{
							Target:     LinkTarget{Name: "in-internal-for-process"},
							Namespace:  "wasmcloud",
							Package:    "messaging",
							Interfaces: []string{"handler"},
						}),
					},
				},
			},
		},
	}

	out, err := MarshalCanonicalYAML(original)
	require.NoError(t, err)

	parsed, err := UnmarshalApplication(out)
	require.NoError(t, err)

	assert.Equal(t, original.APIVersion, parsed.APIVersion)
	assert.Equal(t, original.Metadata.Name, parsed.Metadata.Name)
	require.Len(t, parsed.Spec.Components, 1)
	assert.Equal(t, "messaging-nats", parsed.Spec.Components[0].Name)
	require.NotNil(t, parsed.Spec.Components[0].Properties.Application)
	assert.Equal(t, "acme-providers", parsed.Spec.Components[0].Properties.Application.Name)
	require.Len(t, parsed.Spec.Components[0].Traits, 2)
	require.NotNil(t, parsed.Spec.Components[0].Traits[0].Properties.Instances)
	assert.Equal(t, uint32(1), *parsed.Spec.Components[0].Traits[0].Properties.Instances)
	require.NotNil(t, parsed.Spec.Components[0].Traits[1].Properties.Link)
	assert.Equal(t, "in-internal-for-process", parsed.Spec.Components[0].Traits[1].Properties.Link.Target.Name)
}

func indexOf(t *testing.T, haystack, needle string) int {
	t.Helper()
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	t.Fatalf("needle %q not found in %q", needle, haystack)
	return -1
}
