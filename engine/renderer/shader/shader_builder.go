package shader

// ShaderBuilderOption is a functional option used to configure a Shader during construction.
type ShaderBuilderOption func(*shader)

// WithEntryPoint overrides the entry point name read from the source. Use it when a module
// declares more than one function for the same stage.
//
// Parameters:
//   - name: the entry point function name
//
// Returns:
//   - ShaderBuilderOption: a function that sets the entry point of the shader
func WithEntryPoint(name string) ShaderBuilderOption {
	return func(s *shader) {
		s.entryPoint = name
	}
}

// WithValidation toggles naga validation of the source. Validation is enabled by default;
// disabling it defers all source errors to shader module creation on the device.
//
// Parameters:
//   - enabled: whether to compile the source with naga during construction
//
// Returns:
//   - ShaderBuilderOption: a function that sets the validation flag of the shader
func WithValidation(enabled bool) ShaderBuilderOption {
	return func(s *shader) {
		s.validate = enabled
	}
}
