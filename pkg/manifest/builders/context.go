// Package builders implements the per-node-kind and per-provider-kind
// synthesis strategies (C2 Node Builder Registry, C3 Provider Builder
// Registry) that the pipeline compiler (C4) dispatches to.
package builders

import "github.com/cuemby/pipestack/pkg/manifest"

// Image version pins. These live in the registry, not in configuration,
// because they are properties of the node/sidecar contract, not of a
// deployment environment.
const (
	NodeVersionInHTTP         = "0.1.6"
	NodeVersionInInternal     = "0.1.7"
	NodeVersionOutInternal    = "0.1.6"
	NodeVersionOutLog         = "0.1.6"
	NodeVersionOutHTTPWebhook = "0.1.6"

	ProviderImageHTTPServer    = "ghcr.io/wasmcloud/http-server:0.27.0"
	ProviderImageHTTPClient    = "ghcr.io/wasmcloud/http-client:0.13.1"
	ProviderImageMessagingNats = "ghcr.io/wasmcloud/messaging-nats:0.27.0"

	// SidecarInstances is the fixed, non-configurable replica count for
	// internal ingress/egress sidecars.
	SidecarInstances uint32 = 10_000
)

// RegistryConfig carries the registry endpoints used to address node and
// provider images, injected per deploy rather than hardcoded.
type RegistryConfig struct {
	// URL addresses the public node-image registry, e.g. "ghcr.io/acme".
	URL string
	// InternalURL addresses the registry the artifact publisher (C8) pushes
	// per-workspace processor-wasm blobs to.
	InternalURL string
}

// Context is passed to every node builder; it carries the pipeline being
// compiled, the workspace it belongs to, registry configuration, and the
// precomputed topic assignment (depth-based, see pkg/compiler).
type Context struct {
	Pipeline      *manifest.Pipeline
	WorkspaceSlug string
	Registry      RegistryConfig
	NatsClusterURIs string
	StepTopics    map[string]string
}

// FindNextStepTopic returns the topic of the node that depends on
// currentStep, if any. A node has at most one direct successor's topic of
// interest here because fan-out is resolved at the subscription-link layer,
// not at the sidecar layer: the egress sidecar only needs to know the next
// depth's topic to publish to.
func (c *Context) FindNextStepTopic(currentStep string) string {
	for _, n := range c.Pipeline.Nodes {
		for _, dep := range n.DependsOn {
			if dep == currentStep {
				return c.StepTopics[n.Name]
			}
		}
	}
	return ""
}

// ComponentBuilder is the per-node-kind synthesis strategy.
type ComponentBuilder interface {
	BuildComponents(step manifest.PipelineNode, ctx *Context) ([]manifest.Component, error)
}
