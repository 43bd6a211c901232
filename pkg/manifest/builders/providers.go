package builders

import (
	"fmt"

	"github.com/cuemby/pipestack/pkg/manifest"
)

// ProviderBuilder emits one of the three shared capability components
// (ingress HTTP, egress HTTP, message bus) for a workspace's providers
// manifest. Unlike node builders, provider builders do not depend on the
// pipeline being compiled — only on the workspace and system configuration
// (invariant I5, providers idempotence).
type ProviderBuilder interface {
	Name() string
	BuildComponent(workspaceSlug string, cfg ProviderConfig) (manifest.Component, error)
}

// ProviderConfig carries the system configuration providers need: registry
// endpoints are irrelevant here (providers reference fixed upstream images),
// but the bus capability needs the tenant's messaging credentials and the
// cluster's NATS URIs.
type ProviderConfig struct {
	NatsClusterURIs string
	TenantJWT       string
	TenantSeed      string
}

// HTTPServerProviderBuilder emits the shared ingress HTTP capability.
type HTTPServerProviderBuilder struct{}

func (HTTPServerProviderBuilder) Name() string { return "httpserver" }

func (HTTPServerProviderBuilder) BuildComponent(workspaceSlug string, _ ProviderConfig) (manifest.Component, error) {
	return manifest.Component{
		Name: "httpserver",
		Type: "capability",
		Properties: manifest.Properties{
			Image: ProviderImageHTTPServer,
			Config: []manifest.Config{{
				Name: "default-http-config",
				Properties: manifest.OrderedMap{
					"routing_mode": "path",
					"address":      "0.0.0.0:8000",
				},
			}},
		},
		Traits: []manifest.Trait{manifest.NewSpreadscaler(1)},
	}, nil
}

// HTTPClientProviderBuilder emits the shared egress HTTP capability.
type HTTPClientProviderBuilder struct{}

func (HTTPClientProviderBuilder) Name() string { return "httpclient" }

func (HTTPClientProviderBuilder) BuildComponent(workspaceSlug string, _ ProviderConfig) (manifest.Component, error) {
	return manifest.Component{
		Name: "httpclient",
		Type: "capability",
		Properties: manifest.Properties{
			Image: ProviderImageHTTPClient,
		},
		Traits: []manifest.Trait{manifest.NewSpreadscaler(1)},
	}, nil
}

// NatsMessagingProviderBuilder emits the shared message-bus capability,
// carrying tenant credentials in cleartext to the host per §4.1.
type NatsMessagingProviderBuilder struct{}

func (NatsMessagingProviderBuilder) Name() string { return "messaging-nats" }

func (NatsMessagingProviderBuilder) BuildComponent(workspaceSlug string, cfg ProviderConfig) (manifest.Component, error) {
	props := manifest.OrderedMap{"cluster_uris": cfg.NatsClusterURIs}
	if cfg.TenantJWT != "" {
		props["client_jwt"] = cfg.TenantJWT
	}
	if cfg.TenantSeed != "" {
		props["client_seed"] = cfg.TenantSeed
	}
	return manifest.Component{
		Name: "messaging-nats",
		Type: "capability",
		Properties: manifest.Properties{
			Image: ProviderImageMessagingNats,
			Config: []manifest.Config{{
				Name:       fmt.Sprintf("%s-messaging-nats-config", workspaceSlug),
				Properties: props,
			}},
		},
		Traits: []manifest.Trait{manifest.NewSpreadscaler(1)},
	}, nil
}

// ProviderBuilderRegistry holds the fixed set of provider builders.
type ProviderBuilderRegistry struct {
	providers []ProviderBuilder
}

// NewProviderBuilderRegistry constructs the registry with all three
// providers wired in, in a fixed emission order.
func NewProviderBuilderRegistry() *ProviderBuilderRegistry {
	return &ProviderBuilderRegistry{
		providers: []ProviderBuilder{
			HTTPServerProviderBuilder{},
			HTTPClientProviderBuilder{},
			NatsMessagingProviderBuilder{},
		},
	}
}

// Enabled returns the provider builders that apply to a workspace given
// which node families are present in the pipeline being compiled. The bus
// capability is always enabled; ingress/egress HTTP are gated on the
// presence of in-http-*/out-http-* nodes (§8 boundary behaviors, invariant
// I5) even though providers is otherwise pipeline-independent.
func (r *ProviderBuilderRegistry) Enabled(hasHTTPIngress, hasHTTPEgress bool) []ProviderBuilder {
	var out []ProviderBuilder
	for _, pb := range r.providers {
		switch pb.Name() {
		case "httpserver":
			if !hasHTTPIngress {
				continue
			}
		case "httpclient":
			if !hasHTTPEgress {
				continue
			}
		}
		out = append(out, pb)
	}
	return out
}
