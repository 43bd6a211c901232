package builders

import (
	"fmt"

	"github.com/cuemby/pipestack/pkg/manifest"
)

// InHTTPWebhookBuilder synthesizes the ingress component for an
// in-http-webhook node plus its egress-to-bus sidecar.
type InHTTPWebhookBuilder struct{}

func (InHTTPWebhookBuilder) BuildComponents(step manifest.PipelineNode, ctx *Context) ([]manifest.Component, error) {
	var components []manifest.Component

	var config []manifest.Config
	if step.Settings != nil && step.Settings.Type == "in-http-webhook" && step.Settings.InHTTPWebhook != nil {
		config = []manifest.Config{{
			Name:       fmt.Sprintf("%s-config-v%s", step.Name, ctx.Pipeline.Version),
			Properties: settingsToProperties(step.Settings.InHTTPWebhook),
		}}
	}

	components = append(components, manifest.Component{
		Name: step.Name,
		Type: "component",
		Properties: manifest.Properties{
			ID:     fmt.Sprintf("%s_%s-%s", ctx.WorkspaceSlug, ctx.Pipeline.Name, step.Name),
			Image:  fmt.Sprintf("%s/nodes/in-http:%s", ctx.Registry.URL, NodeVersionInHTTP),
			Config: config,
		},
		Traits: []manifest.Trait{
			manifest.NewSpreadscaler(step.InstancesOrDefault(1)),
			manifest.NewLink(manifest.LinkProperties{
				Target:     manifest.LinkTarget{Name: fmt.Sprintf("out-internal-for-%s", step.Name)},
				Namespace:  "pipestack",
				Package:    "out",
				Interfaces: []string{"out"},
			}),
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

// settingsToProperties flattens typed node settings into a Config.Properties
// bag: method always, contentType and requestBodyJsonSchema (as raw JSON
// text) only when set. No other settings fields are copied.
func settingsToProperties(s *manifest.InHTTPWebhookSettings) manifest.OrderedMap {
	props := manifest.OrderedMap{"method": s.Method}
	if s.ContentType != nil {
		props["contentType"] = *s.ContentType
	}
	if len(s.RequestBodyJSONSchema) > 0 {
		props["requestBodyJsonSchema"] = string(s.RequestBodyJSONSchema)
	}
	return props
}
