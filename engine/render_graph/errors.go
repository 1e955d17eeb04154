package render_graph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrGraphConsumed is returned when Compile is called on a graph that was already compiled.
	ErrGraphConsumed = errors.New("render graph already compiled")

	// ErrBuilderConsumed is returned when a pass or transfer builder is used after Execute or Finish.
	ErrBuilderConsumed = errors.New("builder already finalized")

	// ErrDepthTargetAlreadySet is returned when WriteDepth is called more than once on a pass.
	ErrDepthTargetAlreadySet = errors.New("depth target already set for pass")

	// ErrInvalidDepthTarget is returned when WriteDepth is given a non-texture resource.
	ErrInvalidDepthTarget = errors.New("depth target must be a texture")

	// ErrInvalidNodeKind is returned when AddPass is finalized with the transfer kind.
	ErrInvalidNodeKind = errors.New("invalid node kind for builder")

	// ErrUnsupportedTransfer is returned when a transfer operation targets a texture.
	ErrUnsupportedTransfer = errors.New("transfer operations only support buffer resources")

	// ErrMultipleWriters is returned by strict graphs when more than one node writes the same resource.
	ErrMultipleWriters = errors.New("resource written by more than one node")

	// ErrUnknownResource is wrapped by UnknownResourceError.
	ErrUnknownResource = errors.New("unknown resource")

	// ErrUndeclaredResource is returned when a pass asks for a resource it did not declare.
	ErrUndeclaredResource = errors.New("resource not declared by pass")

	// ErrUnknownPipeline is returned when a pipeline handle or key cannot be resolved.
	ErrUnknownPipeline = errors.New("unknown pipeline")

	// ErrReadbackCancelled fulfils tickets whose frame was released or failed before submission.
	ErrReadbackCancelled = errors.New("readback cancelled before submission")

	// ErrFrameSubmitted is returned when a compiled frame is submitted twice.
	ErrFrameSubmitted = errors.New("compiled frame already submitted")

	// ErrFrameReleased is returned when a compiled frame is submitted after Release.
	ErrFrameReleased = errors.New("compiled frame already released")

	// ErrKindMismatch is returned when a pass context encoder of the wrong kind is requested.
	ErrKindMismatch = errors.New("pass kind does not support this operation")
)

// CycleError reports that the declared resource dependencies do not form a DAG.
// No node of a graph that fails with a CycleError is materialized or recorded.
type CycleError struct {
	// Unscheduled holds the names of the nodes that could not be ordered, in declaration order.
	Unscheduled []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("render graph contains a dependency cycle between passes [%s]", strings.Join(e.Unscheduled, ", "))
}

// UnknownResourceError reports a handle whose descriptor cannot be found in the graph's registries,
// typically a handle created by a different RenderGraph.
type UnknownResourceError struct {
	Handle ResourceHandle
	// Pass is the name of the pass that referenced the handle, empty when not pass related.
	Pass string
}

func (e *UnknownResourceError) Error() string {
	if e.Pass == "" {
		return fmt.Sprintf("%v: %s", ErrUnknownResource, e.Handle)
	}
	return fmt.Sprintf("%v: %s referenced by pass %q", ErrUnknownResource, e.Handle, e.Pass)
}

func (e *UnknownResourceError) Unwrap() error {
	return ErrUnknownResource
}

// AllocationError reports a failed GPU resource creation while compiling a pass.
// The frame is abandoned; the process can continue with the next frame.
type AllocationError struct {
	Pass     string
	Resource ResourceHandle
	Err      error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("failed to allocate %s for pass %q: %v", e.Resource, e.Pass, e.Err)
}

func (e *AllocationError) Unwrap() error {
	return e.Err
}
