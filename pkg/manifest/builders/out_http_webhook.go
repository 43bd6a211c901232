package builders

import (
	"fmt"

	"github.com/cuemby/pipestack/pkg/manifest"
)

// OutHTTPWebhookBuilder synthesizes the ingress-from-bus sidecar and the
// out-http-webhook component, which delivers to the workspace's egress HTTP
// capability.
type OutHTTPWebhookBuilder struct{}

func (OutHTTPWebhookBuilder) BuildComponents(step manifest.PipelineNode, ctx *Context) ([]manifest.Component, error) {
	components := []manifest.Component{
		{
			Name: fmt.Sprintf("in-internal-for-%s", step.Name),
			Type: "component",
			Properties: manifest.Properties{
				ID:    fmt.Sprintf("%s_%s-in-internal-for-%s", ctx.WorkspaceSlug, ctx.Pipeline.Name, step.Name),
				Image: fmt.Sprintf("%s/nodes/in-internal:%s", ctx.Registry.URL, NodeVersionInInternal),
			},
			Traits: []manifest.Trait{
				manifest.NewSpreadscaler(1),
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
				Image: fmt.Sprintf("%s/nodes/out-http-webhook:%s", ctx.Registry.URL, NodeVersionOutHTTPWebhook),
			},
			Traits: []manifest.Trait{
				manifest.NewSpreadscaler(step.InstancesOrDefault(1)),
				manifest.NewLink(manifest.LinkProperties{
					Target:     manifest.LinkTarget{Name: "httpclient"},
					Namespace:  "wasi",
					Package:    "http",
					Interfaces: []string{"outgoing-handler"},
				}),
			},
		},
	}
	return components, nil
}
