package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/pipestack/pkg/manifest"
	"github.com/cuemby/pipestack/pkg/manifest/builders"
)

func testOptions() Options {
	return Options{
		Registry:        builders.RegistryConfig{URL: "ghcr.io/acme", InternalURL: "registry.internal/acme"},
		NatsClusterURIs: "nats://nats.internal:4222",
	}
}

func node(name string, typ manifest.PipelineNodeType, deps ...string) manifest.PipelineNode {
	return manifest.PipelineNode{Name: name, Type: typ, DependsOn: deps}
}

// TestCompile_MinimalThreeStage covers a single in-http-webhook -> processor-wasm
// -> out-log pipeline, asserting it compiles deterministically and attaches
// the ingress HTTP capability but not the egress one.
func TestCompile_MinimalThreeStage(t *testing.T) {
	pipeline := &manifest.Pipeline{
		Name:    "orders",
		Version: "1",
		Nodes: []manifest.PipelineNode{
			node("webhook", manifest.NodeInHTTPWebhook),
			node("process", manifest.NodeProcessorWasm, "webhook"),
			node("log", manifest.NodeOutLog, "process"),
		},
	}

	pipelineApp1, providersApp1, err := Compile(pipeline, "acme", testOptions())
	require.NoError(t, err)

	pipelineApp2, providersApp2, err := Compile(pipeline, "acme", testOptions())
	require.NoError(t, err)

	yaml1, err := manifest.MarshalCanonicalYAML(pipelineApp1)
	require.NoError(t, err)
	yaml2, err := manifest.MarshalCanonicalYAML(pipelineApp2)
	require.NoError(t, err)
	assert.Equal(t, string(yaml1), string(yaml2), "compile must be deterministic (invariant I1)")

	var names []string
	for _, c := range pipelineApp1.Spec.Components {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "webhook")
	assert.Contains(t, names, "process")
	assert.Contains(t, names, "log")
	assert.Contains(t, names, "httpserver", "ingress capability must attach when an in-http-webhook node is present")
	assert.NotContains(t, names, "httpclient", "egress capability must not attach without an out-http-webhook node")

	var providerNames []string
	for _, c := range providersApp1.Spec.Components {
		providerNames = append(providerNames, c.Name)
	}
	assert.Contains(t, providerNames, "httpserver")
	assert.NotContains(t, providerNames, "httpclient")
	assert.Contains(t, providerNames, "messaging-nats", "the bus capability is always enabled")
}

// TestCompile_FanOutSharesTopic covers §8 S2: two sink nodes depending on the
// same processor share that processor's successor topic (depth-based
// assignment, not per-edge), and each gets its own subscription link.
func TestCompile_FanOutSharesTopic(t *testing.T) {
	pipeline := &manifest.Pipeline{
		Name:    "fanout",
		Version: "1",
		Nodes: []manifest.PipelineNode{
			node("webhook", manifest.NodeInHTTPWebhook),
			node("process", manifest.NodeProcessorWasm, "webhook"),
			node("log-a", manifest.NodeOutLog, "process"),
			node("log-b", manifest.NodeOutLog, "process"),
		},
	}

	pipelineApp, _, err := Compile(pipeline, "acme", testOptions())
	require.NoError(t, err)

	var busComponent *manifest.Component
	for i, c := range pipelineApp.Spec.Components {
		if c.Name == "messaging-nats" {
			busComponent = &pipelineApp.Spec.Components[i]
		}
	}
	require.NotNil(t, busComponent)

	sinkTopics := make(map[string]string)
	for _, trait := range busComponent.Traits {
		link := trait.Properties.Link
		if link == nil || link.Source == nil {
			continue
		}
		if link.Target.Name != "in-internal-for-log-a" && link.Target.Name != "in-internal-for-log-b" {
			continue
		}
		for _, cfg := range link.Source.Config {
			if topic, ok := cfg.Properties["subscriptions"]; ok {
				sinkTopics[link.Target.Name] = topic.(string)
			}
		}
	}

	require.Len(t, sinkTopics, 2, "both sinks get their own subscription link")
	assert.Equal(t, sinkTopics["in-internal-for-log-a"], sinkTopics["in-internal-for-log-b"], "both sinks subscribe to the same depth-assigned topic")
}

// TestCompile_CycleDetected covers §8 S6: a dependency cycle aborts
// compilation with no partial manifest returned.
func TestCompile_CycleDetected(t *testing.T) {
	pipeline := &manifest.Pipeline{
		Name:    "broken",
		Version: "1",
		Nodes: []manifest.PipelineNode{
			node("a", manifest.NodeProcessorWasm, "b"),
			node("b", manifest.NodeProcessorWasm, "a"),
		},
	}

	_, _, err := Compile(pipeline, "acme", testOptions())
	require.Error(t, err)
	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, CycleDetected, compileErr.Kind)
}

// TestCompile_MissingDependencyAborts covers a dangling dependsOn reference
// (no such cycle exists; the named predecessor simply was never declared),
// which must report MissingDependency rather than CycleDetected.
func TestCompile_MissingDependencyAborts(t *testing.T) {
	pipeline := &manifest.Pipeline{
		Name:    "dangling",
		Version: "1",
		Nodes: []manifest.PipelineNode{
			node("sink", manifest.NodeOutLog, "ghost"),
		},
	}

	_, _, err := Compile(pipeline, "acme", testOptions())
	require.Error(t, err)
	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, MissingDependency, compileErr.Kind)
}

// TestCompile_UnknownKindAborts covers a node kind the registry has no
// builder for: the whole compile aborts rather than silently dropping the node.
func TestCompile_UnknownKindAborts(t *testing.T) {
	pipeline := &manifest.Pipeline{
		Name:    "unsupported",
		Version: "1",
		Nodes: []manifest.PipelineNode{
			node("source", manifest.NodeInKafka),
		},
	}

	_, _, err := Compile(pipeline, "acme", testOptions())
	require.Error(t, err)
	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, UnknownKind, compileErr.Kind)
}

// TestCompile_EgressCapabilityGating asserts the egress HTTP capability only
// attaches when an out-http-webhook node is present, mirroring the ingress
// assertion above from the other side (invariant I5).
func TestCompile_EgressCapabilityGating(t *testing.T) {
	pipeline := &manifest.Pipeline{
		Name:    "egress",
		Version: "1",
		Nodes: []manifest.PipelineNode{
			node("webhook", manifest.NodeInHTTPWebhook),
			node("process", manifest.NodeProcessorWasm, "webhook"),
			node("forward", manifest.NodeOutHTTPWebhook, "process"),
		},
	}

	pipelineApp, providersApp, err := Compile(pipeline, "acme", testOptions())
	require.NoError(t, err)

	var names []string
	for _, c := range pipelineApp.Spec.Components {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "httpclient")

	var providerNames []string
	for _, c := range providersApp.Spec.Components {
		providerNames = append(providerNames, c.Name)
	}
	assert.Contains(t, providerNames, "httpclient")
}

// TestCompile_ConflictingNameAborts covers two node definitions producing a
// component with the same synthesized name.
func TestCompile_ConflictingNameAborts(t *testing.T) {
	pipeline := &manifest.Pipeline{
		Name:    "dup",
		Version: "1",
		Nodes: []manifest.PipelineNode{
			node("step", manifest.NodeInHTTPWebhook),
			node("step", manifest.NodeInHTTPWebhook),
		},
	}

	_, _, err := Compile(pipeline, "acme", testOptions())
	require.Error(t, err)
	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, ConflictingName, compileErr.Kind)
}

// TestCompileProvidersOnly covers the /deploy-providers path: with no
// pipeline to derive presence bits from, neither HTTP capability attaches.
func TestCompileProvidersOnly(t *testing.T) {
	providersApp, err := CompileProvidersOnly("acme", testOptions())
	require.NoError(t, err)

	var names []string
	for _, c := range providersApp.Spec.Components {
		names = append(names, c.Name)
	}
	assert.NotContains(t, names, "httpserver")
	assert.NotContains(t, names, "httpclient")
	assert.Contains(t, names, "messaging-nats")
}
