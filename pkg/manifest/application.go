package manifest

// Application is the OAM-shaped deployable document consumed by the
// external reconciler ("wadm"): apiVersion/kind/metadata/spec.components[].
type Application struct {
	APIVersion string   `yaml:"apiVersion"`
	Kind       string   `yaml:"kind"`
	Metadata   Metadata `yaml:"metadata"`
	Spec       Spec     `yaml:"spec"`
}

// Metadata carries the application name and free-form annotations.
type Metadata struct {
	Name        string            `yaml:"name"`
	Annotations map[string]string `yaml:"annotations"`
}

// Spec wraps the ordered component list.
type Spec struct {
	Components []Component `yaml:"components"`
}

// Component is a named unit in a manifest: a workload component or a shared
// capability, with properties and zero or more traits.
type Component struct {
	Name       string     `yaml:"name"`
	Type       string     `yaml:"type"` // "component" | "capability"
	Properties Properties `yaml:"properties"`
	Traits     []Trait    `yaml:"traits,omitempty"`
}

// Properties is the component properties sum type: either an image-backed
// workload ({id, image, config?}) or a reference to a component declared in
// a sibling manifest ({application{name, component}}). Exactly one of the
// two shapes is populated; Properties.MarshalYAML in yaml.go emits only that
// shape, reproducing the source's untagged-enum serialization.
type Properties struct {
	ID          string          `yaml:"id,omitempty"`
	Image       string          `yaml:"image,omitempty"`
	Config      []Config        `yaml:"config,omitempty"`
	Application *ApplicationRef `yaml:"application,omitempty"`
}

// ApplicationRef references a component declared in a sibling manifest.
type ApplicationRef struct {
	Name      string `yaml:"name"`
	Component string `yaml:"component"`
}

// Config is a named configuration bundle attached to a component or a link
// source/target. Properties use OrderedMap so serialization is deterministic
// regardless of insertion order, matching the source's BTreeMap<String,Value>.
type Config struct {
	Name       string     `yaml:"name"`
	Properties OrderedMap `yaml:"properties"`
}

// Trait is either a spreadscaler (replica count) or a link (directed edge to
// another component). Only one of Instances/Link is populated; see
// MarshalYAML/UnmarshalYAML in yaml.go for how the untagged union is encoded.
type Trait struct {
	Type       string          `yaml:"type"` // "spreadscaler" | "link"
	Properties TraitProperties `yaml:"properties"`
}

// TraitProperties is the trait properties sum type.
type TraitProperties struct {
	Instances *uint32
	Link      *LinkProperties
}

// LinkProperties describes a directed link between two components over a
// wasmCloud namespace/package/interfaces triple.
type LinkProperties struct {
	Name       *string     `yaml:"name,omitempty"`
	Source     *LinkSource `yaml:"source,omitempty"`
	Target     LinkTarget  `yaml:"target"`
	Namespace  string      `yaml:"namespace"`
	Package    string      `yaml:"package"`
	Interfaces []string    `yaml:"interfaces"`
}

// LinkTarget names the component a link points at, with optional config.
type LinkTarget struct {
	Name   string   `yaml:"name"`
	Config []Config `yaml:"config,omitempty"`
}

// LinkSource carries optional config attached at the link's origin.
type LinkSource struct {
	Config []Config `yaml:"config,omitempty"`
}

// NewSpreadscaler builds a spreadscaler trait with the given instance count.
func NewSpreadscaler(instances uint32) Trait {
	return Trait{Type: "spreadscaler", Properties: TraitProperties{Instances: &instances}}
}

// NewLink builds a link trait.
func NewLink(props LinkProperties) Trait {
	return Trait{Type: "link", Properties: TraitProperties{Link: &props}}
}
