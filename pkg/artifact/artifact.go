// Package artifact implements the Artifact Publisher (C8): for each
// processor-wasm node, fetch its signed blob from tenant object storage
// (Cloudflare R2, S3-compatible, AWS-V4 signed) and push it to the
// platform's OCI registry under a deterministic reference.
package artifact

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/go-containerregistry/pkg/crane"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/static"
	"github.com/google/go-containerregistry/pkg/v1/types"

	"github.com/cuemby/pipestack/pkg/log"
	"github.com/cuemby/pipestack/pkg/manifest"
)

// ObjectStoreFetchFailedError accumulates a single node's fetch failure.
type ObjectStoreFetchFailedError struct {
	Node string
	Err  error
}

func (e *ObjectStoreFetchFailedError) Error() string {
	return fmt.Sprintf("ObjectStoreFetchFailed{%s}: %v", e.Node, e.Err)
}
func (e *ObjectStoreFetchFailedError) Unwrap() error { return e.Err }

// OciPushFailedError accumulates a single node's registry push failure.
type OciPushFailedError struct {
	Node string
	Err  error
}

func (e *OciPushFailedError) Error() string {
	return fmt.Sprintf("OciPushFailed{%s}: %v", e.Node, e.Err)
}
func (e *OciPushFailedError) Unwrap() error { return e.Err }

// AggregateError collects per-node failures from a publish run; the overall
// operation fails with the whole list rather than the first error.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("artifact publish failed for %d node(s): %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Config carries the Cloudflare R2 and OCI registry endpoints.
type Config struct {
	AccountID       string
	R2AccessKeyID   string
	R2SecretKey     string
	R2Bucket        string
	RegistryURL     string
}

// Publisher fetches and pushes WASM processor blobs.
type Publisher struct {
	s3Client *s3.Client
	cfg      Config
	httpc    *http.Client
}

// New constructs a Publisher whose S3 client is configured against the R2
// S3-compatible endpoint derived from the account id, signed with AWS-V4.
func New(ctx context.Context, cfg Config) (*Publisher, error) {
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	return &Publisher{s3Client: client, cfg: cfg, httpc: &http.Client{}}, nil
}

// ProbeRegistry checks registry reachability once before the first push, as
// required by §4.3.
func (p *Publisher) ProbeRegistry(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("https://%s/v2/", p.cfg.RegistryURL), nil)
	if err != nil {
		return fmt.Errorf("build registry probe request: %w", err)
	}
	resp, err := p.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("registry unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("registry returned %d", resp.StatusCode)
	}
	return nil
}

// PublishPipeline fetches and pushes the blob for every processor-wasm node
// in pipeline, concurrently, aggregating any node-level failures into a
// single AggregateError.
func (p *Publisher) PublishPipeline(ctx context.Context, pipeline *manifest.Pipeline, workspaceSlug string) error {
	if err := p.ProbeRegistry(ctx); err != nil {
		return err
	}

	var nodes []manifest.PipelineNode
	for _, n := range pipeline.Nodes {
		if n.Type == manifest.NodeProcessorWasm {
			nodes = append(nodes, n)
		}
	}
	if len(nodes) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	errs := make([]error, len(nodes))
	for i, n := range nodes {
		wg.Add(1)
		go func(i int, n manifest.PipelineNode) {
			defer wg.Done()
			errs[i] = p.publishNode(ctx, n, pipeline, workspaceSlug)
		}(i, n)
	}
	wg.Wait()

	var failures []error
	for _, err := range errs {
		if err != nil {
			failures = append(failures, err)
		}
	}
	if len(failures) > 0 {
		return &AggregateError{Errors: failures}
	}
	return nil
}

func (p *Publisher) publishNode(ctx context.Context, node manifest.PipelineNode, pipeline *manifest.Pipeline, workspaceSlug string) error {
	objectKey := fmt.Sprintf("%s/pipeline/%s/%s/builder/components/nodes/processor/wasm/%s.wasm",
		workspaceSlug, pipeline.Name, pipeline.Version, node.Name)

	blob, err := p.fetchBlob(ctx, objectKey)
	if err != nil {
		logged := &ObjectStoreFetchFailedError{Node: node.Name, Err: err}
		log.Logger.Error().Err(err).Str("node", node.Name).Msg("object store fetch failed")
		return logged
	}

	ref := fmt.Sprintf("%s/%s/pipeline/%s/%s/builder/components/nodes/processor/wasm/%s:1.0.0",
		p.cfg.RegistryURL, workspaceSlug, pipeline.Name, pipeline.Version, node.Name)

	img, err := wasmImage(blob)
	if err != nil {
		logged := &OciPushFailedError{Node: node.Name, Err: err}
		log.Logger.Error().Err(err).Str("node", node.Name).Msg("wrap wasm blob as oci image")
		return logged
	}
	if err := crane.Push(img, ref); err != nil {
		logged := &OciPushFailedError{Node: node.Name, Err: err}
		log.Logger.Error().Err(err).Str("node", node.Name).Str("ref", ref).Msg("oci push failed")
		return logged
	}
	log.Logger.Info().Str("node", node.Name).Str("ref", ref).Msg("processor blob published")
	return nil
}

// wasmApplicationLayerType mirrors the media type wasmCloud's own OCI
// artifact tooling uses for a single-layer component image.
const wasmApplicationLayerType types.MediaType = "application/vnd.module.wasm.content.layer.v1+wasm"

// wasmImage wraps a raw component blob in a single-layer OCI image so it can
// be pushed with an ordinary registry client, mirroring how wash/wkg publish
// wasmCloud components.
func wasmImage(blob []byte) (v1.Image, error) {
	layer, err := static.NewLayer(blob, wasmApplicationLayerType)
	if err != nil {
		return nil, fmt.Errorf("build wasm layer: %w", err)
	}
	img, err := mutate.AppendLayers(empty.Image, layer)
	if err != nil {
		return nil, fmt.Errorf("append wasm layer: %w", err)
	}
	return img, nil
}

func (p *Publisher) fetchBlob(ctx context.Context, key string) ([]byte, error) {
	out, err := p.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.cfg.R2Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}
