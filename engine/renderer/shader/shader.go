package shader

import (
	"errors"
	"fmt"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga"
)

// ShaderType identifies the pipeline stage a shader entry point runs in.
type ShaderType int

const (
	// ShaderTypeCompute indicates a shader containing a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex

	// ShaderTypeFragment is the fragment shader type, used for fragment processing in pair with a vertex shader.
	ShaderTypeFragment
)

func (t ShaderType) String() string {
	switch t {
	case ShaderTypeCompute:
		return "compute"
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderType(%d)", int(t))
	}
}

var (
	// ErrInvalidSource is returned when WGSL source fails naga validation.
	ErrInvalidSource = errors.New("shader: invalid WGSL source")

	// ErrEntryPointNotFound is returned when the source declares no entry point for the shader type.
	ErrEntryPointNotFound = errors.New("shader: entry point not found")
)

// shader is the implementation of the Shader interface.
type shader struct {
	key           string
	source        string
	shaderType    ShaderType
	entryPoint    string
	vertexLayouts []wgpu.VertexBufferLayout
	workGroupSize [3]uint32
	module        *wgpu.ShaderModuleDescriptor
	spirv         []byte

	validate bool
}

// Shader defines the interface for a loaded and validated WGSL shader stage. It exposes the
// shader's unique key, source code, entry point, vertex buffer layouts and workgroup size
// needed by the pipeline manager to create GPU pipelines.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the WGSL shader source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// ShaderType returns the stage of the shader (vertex, fragment, or compute).
	//
	// Returns:
	//   - ShaderType: ShaderTypeVertex, ShaderTypeFragment, or ShaderTypeCompute
	ShaderType() ShaderType

	// EntryPoint returns the entry point name for this shader.
	//
	// Returns:
	//   - string: the entry point name (e.g. "vs_main")
	EntryPoint() string

	// VertexLayouts retrieves the vertex buffer layouts parsed from the vertex input structs of the
	// source, one layout per struct in declaration order. Non-vertex shaders return nil.
	//
	// Returns:
	//   - []wgpu.VertexBufferLayout: the vertex buffer layouts, indexed by buffer slot
	VertexLayouts() []wgpu.VertexBufferLayout

	// WorkgroupSize returns the workgroup size dimensions for compute shaders.
	// Returns [0, 0, 0] for non-compute shaders and [1, 1, 1] as the default when
	// @workgroup_size is not specified.
	//
	// Returns:
	//   - [3]uint32: the workgroup size as [x, y, z]
	WorkgroupSize() [3]uint32

	// Module returns the wgpu.ShaderModuleDescriptor for this shader.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the shader module descriptor containing the WGSL code and label
	Module() *wgpu.ShaderModuleDescriptor

	// SPIRV returns the SPIR-V binary naga produced while validating the source.
	// It is nil when validation was disabled.
	//
	// Returns:
	//   - []byte: the SPIR-V module
	SPIRV() []byte
}

var _ Shader = &shader{}

// NewShader creates a new Shader from WGSL source. The source is validated by compiling it
// with naga unless WithValidation(false) is given, and the entry point, vertex layouts and
// workgroup size are read from the source.
//
// Parameters:
//   - key: a unique identifier for the shader, used for caching and lookups
//   - shaderType: the stage of the shader (vertex, fragment or compute)
//   - source: the WGSL source code
//   - options: optional builder options
//
// Returns:
//   - Shader: the parsed shader
//   - error: ErrInvalidSource or ErrEntryPointNotFound wrapped with the shader key
func NewShader(key string, shaderType ShaderType, source string, options ...ShaderBuilderOption) (Shader, error) {
	s := &shader{
		key:        key,
		source:     source,
		shaderType: shaderType,
		validate:   true,
	}
	for _, opt := range options {
		opt(s)
	}

	if s.validate {
		spirv, err := naga.Compile(source)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSource, key, err)
		}
		s.spirv = spirv
	}

	cleaned := stripComments(source)
	if s.entryPoint == "" {
		s.entryPoint = parseEntryPoint(cleaned, shaderType)
	}
	if s.entryPoint == "" {
		return nil, fmt.Errorf("%w: %s has no @%s function", ErrEntryPointNotFound, key, shaderType)
	}

	switch shaderType {
	case ShaderTypeVertex:
		s.vertexLayouts = parseVertexLayouts(cleaned)
	case ShaderTypeCompute:
		s.workGroupSize = parseWorkgroupSize(cleaned)
	}

	s.module = &wgpu.ShaderModuleDescriptor{
		Label: s.key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.source,
		},
	}
	return s, nil
}

// NewShaderFromPath reads WGSL source from a file and creates a Shader from it.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - shaderType: the stage of the shader
//   - path: the file path to read WGSL source from
//   - options: optional builder options
//
// Returns:
//   - Shader: the parsed shader
//   - error: an error if the file could not be read or the source is invalid
func NewShaderFromPath(key string, shaderType ShaderType, path string, options ...ShaderBuilderOption) (Shader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("shader: failed to read source file %q: %w", path, err)
	}
	return NewShader(key, shaderType, string(data), options...)
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) VertexLayouts() []wgpu.VertexBufferLayout {
	return s.vertexLayouts
}

func (s *shader) WorkgroupSize() [3]uint32 {
	return s.workGroupSize
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) SPIRV() []byte {
	return s.spirv
}
