/*
Package api implements the control plane's HTTP admin surface (§6): the
outward-facing boundary a workspace operator or upstream automation talks to.

	GET  /health             liveness probe, always 200
	POST /deploy             {pipeline, workspaceSlug} -> compile + submit both manifests
	POST /deploy-providers   {workspaceSlug}           -> submit only the providers manifest

Both deploy endpoints return 200 with {"result": "deployed"} on success, or
500 with {"result": "<error message>"} on failure — compile errors, a
not-yet-provisioned tenant, and bus submission failures all surface here as
a descriptive string rather than a structured error code, matching the
source's loosely-typed result field.

The server itself does no compilation or bus work: it decodes the request,
calls into pkg/deploy, and translates whatever error comes back into the
response shape. All the interesting behavior — topic assignment, node
synthesis, retrying a flaky bus publish — lives in pkg/compiler and
pkg/deploy.
*/
package api
