package builders

import (
	"fmt"

	"github.com/cuemby/pipestack/pkg/manifest"
)

// OutLogBuilder synthesizes the ingress-from-bus sidecar and the out-log
// component itself. out-log is a terminal sink: it never gets an egress
// sidecar.
type OutLogBuilder struct{}

func (OutLogBuilder) BuildComponents(step manifest.PipelineNode, ctx *Context) ([]manifest.Component, error) {
	components := []manifest.Component{
		{
			Name: fmt.Sprintf("in-internal-for-%s", step.Name),
			Type: "component",
			Properties: manifest.Properties{
				ID:    fmt.Sprintf("%s_%s-in-internal-for-%s", ctx.WorkspaceSlug, ctx.Pipeline.Name, step.Name),
				Image: fmt.Sprintf("%s/nodes/in-internal:%s", ctx.Registry.URL, NodeVersionInInternal),
			},
			Traits: []manifest.Trait{
				manifest.NewSpreadscaler(SidecarInstances),
				manifest.NewLink(manifest.LinkProperties{
					Target:     manifest.LinkTarget{Name: "messaging-nats"},
					Namespace:  "wasmcloud",
					Package:    "messaging",
					Interfaces: []string{"consumer"},
				}),
				manifest.NewLink(manifest.LinkProperties{
					Target:     manifest.LinkTarget{Name: step.Name},
					Namespace:  "pipestack",
					Package:    "out",
					Interfaces: []string{"out"},
				}),
			},
		},
		{
			Name: step.Name,
			Type: "component",
			Properties: manifest.Properties{
				ID:    fmt.Sprintf("%s_%s-%s", ctx.WorkspaceSlug, ctx.Pipeline.Name, step.Name),
				Image: fmt.Sprintf("%s/nodes/out-log:%s", ctx.Registry.URL, NodeVersionOutLog),
			},
			Traits: []manifest.Trait{
				manifest.NewSpreadscaler(step.InstancesOrDefault(SidecarInstances)),
			},
		},
	}
	return components, nil
}
