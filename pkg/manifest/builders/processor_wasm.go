package builders

import (
	"fmt"

	"github.com/cuemby/pipestack/pkg/manifest"
)

// ProcessorWasmBuilder synthesizes the ingress-from-bus sidecar, the user's
// WASM component itself, and (if it has a successor) the egress-to-bus
// sidecar for a processor-wasm node.
type ProcessorWasmBuilder struct{}

func (ProcessorWasmBuilder) BuildComponents(step manifest.PipelineNode, ctx *Context) ([]manifest.Component, error) {
	var components []manifest.Component

	components = append(components, manifest.Component{
		Name: fmt.Sprintf("in-internal-for-%s", step.Name),
		Type: "component",
		Properties: manifest.Properties{
			ID:    fmt.Sprintf("%s_%s-in-internal-for-%s", ctx.WorkspaceSlug, ctx.Pipeline.Name, step.Name),
			Image: fmt.Sprintf("%s/nodes/in-internal:%s", ctx.Registry.URL, NodeVersionInInternal),
		},
		Traits: []manifest.Trait{
			manifest.NewSpreadscaler(SidecarInstances),
			manifest.NewLink(manifest.LinkProperties{
				Target:     manifest.LinkTarget{Name: step.Name},
				Namespace:  "pipestack",
				Package:    "customer",
				Interfaces: []string{"customer"},
			}),
			manifest.NewLink(manifest.LinkProperties{
				Target:     manifest.LinkTarget{Name: fmt.Sprintf("out-internal-for-%s", step.Name)},
				Namespace:  "pipestack",
				Package:    "out",
				Interfaces: []string{"out"},
			}),
		},
	})

	components = append(components, manifest.Component{
		Name: step.Name,
		Type: "component",
		Properties: manifest.Properties{
			ID: fmt.Sprintf("%s_%s-%s", ctx.WorkspaceSlug, ctx.Pipeline.Name, step.Name),
			Image: fmt.Sprintf(
				"%s/%s/pipeline/%s/%s/builder/components/nodes/processor/wasm/%s:1.0.0",
				ctx.Registry.InternalURL, ctx.WorkspaceSlug, ctx.Pipeline.Name, ctx.Pipeline.Version, step.Name,
			),
		},
		Traits: []manifest.Trait{
			manifest.NewSpreadscaler(step.InstancesOrDefault(SidecarInstances)),
		},
	})

	nextTopic := ctx.FindNextStepTopic(step.Name)
	if nextTopic != "" {
		components = append(components, manifest.Component{
			Name: fmt.Sprintf("out-internal-for-%s", step.Name),
			Type: "component",
			Properties: manifest.Properties{
				ID:    fmt.Sprintf("%s_%s-out-internal-for-%s", ctx.WorkspaceSlug, ctx.Pipeline.Name, step.Name),
				Image: fmt.Sprintf("%s/nodes/out-internal:%s", ctx.Registry.URL, NodeVersionOutInternal),
				Config: []manifest.Config{{
					Name:       fmt.Sprintf("out-internal-for-%s-config-v%s", step.Name, ctx.Pipeline.Version),
					Properties: manifest.OrderedMap{"next-step-topic": nextTopic},
				}},
			},
			Traits: []manifest.Trait{
				manifest.NewSpreadscaler(SidecarInstances),
				manifest.NewLink(manifest.LinkProperties{
					Target:     manifest.LinkTarget{Name: "messaging-nats"},
					Namespace:  "wasmcloud",
					Package:    "messaging",
					Interfaces: []string{"consumer"},
				}),
			},
		})
	}

	return components, nil
}
