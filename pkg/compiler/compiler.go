package compiler

import (
	"fmt"

	"github.com/cuemby/pipestack/pkg/manifest"
	"github.com/cuemby/pipestack/pkg/manifest/builders"
)

// Options carries the system configuration the compiler needs beyond the
// pipeline and workspace slug themselves: registry endpoints for node
// images, the cluster's NATS URIs, and the tenant's messaging credentials
// (cleartext to the host, per §4.1).
type Options struct {
	Registry        builders.RegistryConfig
	NatsClusterURIs string
	TenantJWT       string
	TenantSeed      string
}

// Compile turns a pipeline into two manifests: the pipeline manifest itself
// and a sibling, workspace-scoped providers manifest. It is a pure function:
// identical inputs produce byte-identical canonical YAML (invariant I1).
func Compile(pipeline *manifest.Pipeline, workspaceSlug string, opts Options) (pipelineApp, providersApp manifest.Application, err error) {
	hasHTTPIngress, hasHTTPEgress := nodeFamilies(pipeline)
	providersApp = compileProviders(workspaceSlug, opts, hasHTTPIngress, hasHTTPEgress)

	pipelineApp, err = compilePipeline(pipeline, workspaceSlug, opts, hasHTTPIngress, hasHTTPEgress)
	if err != nil {
		return manifest.Application{}, manifest.Application{}, err
	}
	return pipelineApp, providersApp, nil
}

// CompileProvidersOnly builds the providers manifest for a workspace with
// neither the ingress nor egress HTTP capability enabled, for callers (the
// /deploy-providers admin endpoint) that have no pipeline to derive the
// presence bits from.
func CompileProvidersOnly(workspaceSlug string, opts Options) (manifest.Application, error) {
	return compileProviders(workspaceSlug, opts, false, false), nil
}

// nodeFamilies reports whether the pipeline declares any in-http-*/out-http-*
// node, the presence bits that gate the ingress/egress capabilities in both
// the pipeline and providers manifests (§8, invariant I5).
func nodeFamilies(pipeline *manifest.Pipeline) (hasHTTPIngress, hasHTTPEgress bool) {
	for _, step := range pipeline.Nodes {
		if step.Type == manifest.NodeInHTTPWebhook {
			hasHTTPIngress = true
		}
		if step.Type == manifest.NodeOutHTTPWebhook {
			hasHTTPEgress = true
		}
	}
	return hasHTTPIngress, hasHTTPEgress
}

func compilePipeline(pipeline *manifest.Pipeline, workspaceSlug string, opts Options, hasHTTPIngress, hasHTTPEgress bool) (manifest.Application, error) {
	stepTopics, err := determineStepTopics(pipeline, workspaceSlug)
	if err != nil {
		return manifest.Application{}, err
	}

	ctx := &builders.Context{
		Pipeline:        pipeline,
		WorkspaceSlug:   workspaceSlug,
		Registry:        opts.Registry,
		NatsClusterURIs: opts.NatsClusterURIs,
		StepTopics:      stepTopics,
	}

	registry := builders.NewNodeBuilderRegistry()

	seen := make(map[string]bool)
	var components []manifest.Component
	for _, step := range pipeline.Nodes {
		if !step.Type.Valid() {
			return manifest.Application{}, newCompileError(UnknownKind, "node %q has kind %q, which is not a member of the node-kind enumeration", step.Name, step.Type)
		}
		builder, ok := registry.Get(step.Type)
		if !ok {
			return manifest.Application{}, newCompileError(UnknownKind, "node %q has unrecognized or unbuilt kind %q", step.Name, step.Type)
		}
		built, err := builder.BuildComponents(step, ctx)
		if err != nil {
			return manifest.Application{}, err
		}
		for _, c := range built {
			if seen[c.Name] {
				return manifest.Application{}, newCompileError(ConflictingName, "component %q declared more than once", c.Name)
			}
			seen[c.Name] = true
		}
		components = append(components, built...)
	}

	var firstHTTPStep *manifest.PipelineNode
	for i, step := range pipeline.Nodes {
		if step.Type == manifest.NodeInHTTPWebhook && firstHTTPStep == nil {
			firstHTTPStep = &pipeline.Nodes[i]
		}
	}

	if hasHTTPIngress {
		components = append(components, manifest.Component{
			Name: "httpserver",
			Type: "capability",
			Properties: manifest.Properties{
				Application: &manifest.ApplicationRef{
					Name:      fmt.Sprintf("%s-providers", workspaceSlug),
					Component: "httpserver",
				},
			},
			Traits: []manifest.Trait{
				manifest.NewLink(manifest.LinkProperties{
					Name: ptr(fmt.Sprintf("httpserver-to-%s-%s-link", workspaceSlug, firstHTTPStep.Name)),
					Source: &manifest.LinkSource{
						Config: []manifest.Config{{
							Name:       fmt.Sprintf("%s-%s-httpserver-path-config-v%s", workspaceSlug, pipeline.Name, pipeline.Version),
							Properties: manifest.OrderedMap{"path": fmt.Sprintf("/%s", pipeline.Name)},
						}},
					},
					Target:     manifest.LinkTarget{Name: firstHTTPStep.Name},
					Namespace:  "wasi",
					Package:    "http",
					Interfaces: []string{"incoming-handler"},
				}),
			},
		})
	}

	if hasHTTPEgress {
		components = append(components, manifest.Component{
			Name: "httpclient",
			Type: "capability",
			Properties: manifest.Properties{
				Application: &manifest.ApplicationRef{
					Name:      fmt.Sprintf("%s-providers", workspaceSlug),
					Component: "httpclient",
				},
			},
		})
	}

	busTraits := buildSubscriptionLinks(pipeline, workspaceSlug, stepTopics, opts.NatsClusterURIs)
	components = append(components, manifest.Component{
		Name: "messaging-nats",
		Type: "capability",
		Properties: manifest.Properties{
			Application: &manifest.ApplicationRef{
				Name:      fmt.Sprintf("%s-providers", workspaceSlug),
				Component: "messaging-nats",
			},
		},
		Traits: busTraits,
	})

	return manifest.Application{
		APIVersion: "core.oam.dev/v1beta1",
		Kind:       "Application",
		Metadata: manifest.Metadata{
			Name:        fmt.Sprintf("%s-%s", workspaceSlug, pipeline.Name),
			Annotations: map[string]string{"version": pipeline.Version},
		},
		Spec: manifest.Spec{Components: components},
	}, nil
}

// buildSubscriptionLinks adds one link trait per non-root node to the bus
// capability, in two passes (processors first, then sinks, both in
// declaration order) sharing a single ascending subscription counter, per §4.1.
func buildSubscriptionLinks(pipeline *manifest.Pipeline, workspaceSlug string, stepTopics map[string]string, clusterURIs string) []manifest.Trait {
	var traits []manifest.Trait
	counter := 1

	addLink := func(step manifest.PipelineNode, topic string) {
		traits = append(traits, manifest.NewLink(manifest.LinkProperties{
			Name: ptr(fmt.Sprintf("messaging-nats-to-%s-in-internal-for-%s-link", workspaceSlug, step.Name)),
			Source: &manifest.LinkSource{
				Config: []manifest.Config{{
					Name: fmt.Sprintf("subscription-%d-config-v%s", counter, pipeline.Version),
					Properties: manifest.OrderedMap{
						"subscriptions": topic,
						"cluster_uris":  clusterURIs,
					},
				}},
			},
			Target:     manifest.LinkTarget{Name: fmt.Sprintf("in-internal-for-%s", step.Name)},
			Namespace:  "wasmcloud",
			Package:    "messaging",
			Interfaces: []string{"handler"},
		}))
		counter++
	}

	for _, step := range pipeline.Nodes {
		if step.Type == manifest.NodeProcessorWasm {
			if topic, ok := stepTopics[step.Name]; ok {
				addLink(step, topic)
			}
		}
	}
	for _, step := range pipeline.Nodes {
		if step.Type == manifest.NodeOutLog || step.Type == manifest.NodeOutHTTPWebhook {
			if topic, ok := stepTopics[step.Name]; ok {
				addLink(step, topic)
			}
		}
	}
	return traits
}

func compileProviders(workspaceSlug string, opts Options, hasHTTPIngress, hasHTTPEgress bool) manifest.Application {
	registry := builders.NewProviderBuilderRegistry()
	providerCfg := builders.ProviderConfig{
		NatsClusterURIs: opts.NatsClusterURIs,
		TenantJWT:       opts.TenantJWT,
		TenantSeed:      opts.TenantSeed,
	}

	var components []manifest.Component
	for _, pb := range registry.Enabled(hasHTTPIngress, hasHTTPEgress) {
		c, err := pb.BuildComponent(workspaceSlug, providerCfg)
		if err != nil {
			continue
		}
		components = append(components, c)
	}

	return manifest.Application{
		APIVersion: "core.oam.dev/v1beta1",
		Kind:       "Application",
		Metadata: manifest.Metadata{
			Name: fmt.Sprintf("%s-providers", workspaceSlug),
			Annotations: map[string]string{
				"experimental.wasmcloud.dev/shared": "true",
				"description":                       fmt.Sprintf("Shared providers for the %s workspace", workspaceSlug),
				"version":                            "0.8.0",
			},
		},
		Spec: manifest.Spec{Components: components},
	}
}

func ptr[T any](v T) *T { return &v }
