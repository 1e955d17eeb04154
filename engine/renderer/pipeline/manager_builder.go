package pipeline

import (
	"log/slog"

	"github.com/cogentcore/webgpu/wgpu"
)

// ManagerBuilderOption is a functional option applied to a Manager during construction via NewManager.
type ManagerBuilderOption func(*manager)

// WithDefaultColorFormat sets the color target format used by render pipelines that declare no
// color formats of their own. The renderer passes its surface format here.
//
// Parameters:
//   - format: the default color target format
//
// Returns:
//   - ManagerBuilderOption: a function that sets the default color format
func WithDefaultColorFormat(format wgpu.TextureFormat) ManagerBuilderOption {
	return func(m *manager) {
		m.defaultColorFormat = format
	}
}

// WithLogger sets the logger the manager reports registrations to.
//
// Parameters:
//   - logger: the logger to use; nil keeps the package default
//
// Returns:
//   - ManagerBuilderOption: a function that sets the logger
func WithLogger(logger *slog.Logger) ManagerBuilderOption {
	return func(m *manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}
