package builders

import "github.com/cuemby/pipestack/pkg/manifest"

// NodeBuilderRegistry is a closed dispatch table from node kind to synthesis
// strategy. Kinds in the enumeration without a registered builder are
// recognized (they round-trip and participate in topic depth computation)
// but are not yet buildable; Get reports that absence so the compiler can
// surface CompileError{unknownKind}.
type NodeBuilderRegistry struct {
	builders map[manifest.PipelineNodeType]ComponentBuilder
}

// NewNodeBuilderRegistry constructs the registry with every currently
// implemented node kind wired in.
func NewNodeBuilderRegistry() *NodeBuilderRegistry {
	return &NodeBuilderRegistry{
		builders: map[manifest.PipelineNodeType]ComponentBuilder{
			manifest.NodeInHTTPWebhook:   InHTTPWebhookBuilder{},
			manifest.NodeProcessorWasm:   ProcessorWasmBuilder{},
			manifest.NodeOutLog:          OutLogBuilder{},
			manifest.NodeOutHTTPWebhook:  OutHTTPWebhookBuilder{},
		},
	}
}

// Get returns the builder registered for kind, if any.
func (r *NodeBuilderRegistry) Get(kind manifest.PipelineNodeType) (ComponentBuilder, bool) {
	b, ok := r.builders[kind]
	return b, ok
}
