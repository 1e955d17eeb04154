package shader

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// vertexFormat pairs a wgpu vertex format with its byte size.
type vertexFormat struct {
	format wgpu.VertexFormat
	size   uint64
}

// wgslVertexFormats maps WGSL scalar and vector types to vertex formats. Both the short
// (vec3f) and long (vec3<f32>) spellings resolve to the same format.
var wgslVertexFormats = func() map[string]vertexFormat {
	formats := map[string]vertexFormat{}
	add := func(short, long string, f vertexFormat) {
		formats[short] = f
		formats[long] = f
	}
	formats["f32"] = vertexFormat{wgpu.VertexFormatFloat32, 4}
	formats["i32"] = vertexFormat{wgpu.VertexFormatSint32, 4}
	formats["u32"] = vertexFormat{wgpu.VertexFormatUint32, 4}
	add("vec2f", "vec2<f32>", vertexFormat{wgpu.VertexFormatFloat32x2, 8})
	add("vec3f", "vec3<f32>", vertexFormat{wgpu.VertexFormatFloat32x3, 12})
	add("vec4f", "vec4<f32>", vertexFormat{wgpu.VertexFormatFloat32x4, 16})
	add("vec2i", "vec2<i32>", vertexFormat{wgpu.VertexFormatSint32x2, 8})
	add("vec3i", "vec3<i32>", vertexFormat{wgpu.VertexFormatSint32x3, 12})
	add("vec4i", "vec4<i32>", vertexFormat{wgpu.VertexFormatSint32x4, 16})
	add("vec2u", "vec2<u32>", vertexFormat{wgpu.VertexFormatUint32x2, 8})
	add("vec3u", "vec3<u32>", vertexFormat{wgpu.VertexFormatUint32x3, 12})
	add("vec4u", "vec4<u32>", vertexFormat{wgpu.VertexFormatUint32x4, 16})
	add("vec2h", "vec2<f16>", vertexFormat{wgpu.VertexFormatFloat16x2, 4})
	add("vec4h", "vec4<f16>", vertexFormat{wgpu.VertexFormatFloat16x4, 8})
	return formats
}()

var (
	structBlockRegex   = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)
	locationRegex      = regexp.MustCompile(`@location\((\d+)\)`)
	builtinRegex       = regexp.MustCompile(`@builtin\(\w+\)`)
	fieldRegex         = regexp.MustCompile(`(\w+)\s*:\s*(.+)$`)
	attributeRegex     = regexp.MustCompile(`@\w+(?:\([^)]*\))?`)
	workgroupSizeRegex = regexp.MustCompile(`@workgroup_size\(\s*(\d+)\s*(?:,\s*(\d+)\s*(?:,\s*(\d+)\s*)?)?\)`)

	entryRegexes = map[ShaderType]*regexp.Regexp{
		ShaderTypeVertex:   regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`),
		ShaderTypeFragment: regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`),
		ShaderTypeCompute:  regexp.MustCompile(`(?s)@compute\b.*?\bfn\s+(\w+)`),
	}
)

type parsedField struct {
	typeName  string
	location  int
	isBuiltin bool
}

// parseEntryPoint returns the name of the first function annotated for the given stage,
// or an empty string.
func parseEntryPoint(source string, shaderType ShaderType) string {
	re, ok := entryRegexes[shaderType]
	if !ok {
		return ""
	}
	if match := re.FindStringSubmatch(source); match != nil {
		return match[1]
	}
	return ""
}

// parseWorkgroupSize reads @workgroup_size(x[, y[, z]]). Missing dimensions default to 1.
func parseWorkgroupSize(source string) [3]uint32 {
	result := [3]uint32{1, 1, 1}
	match := workgroupSizeRegex.FindStringSubmatch(source)
	if match == nil {
		return result
	}
	for i, dim := range match[1:] {
		if dim == "" {
			continue
		}
		if v, err := strconv.ParseUint(dim, 10, 32); err == nil {
			result[i] = uint32(v)
		}
	}
	return result
}

// parseVertexLayouts builds one tightly packed vertex buffer layout per vertex input struct.
// A vertex input struct has @location fields and no @builtin field, which separates it from
// the vertex output struct. Structs with a type that has no vertex format are skipped.
func parseVertexLayouts(source string) []wgpu.VertexBufferLayout {
	var layouts []wgpu.VertexBufferLayout
	for _, match := range structBlockRegex.FindAllStringSubmatch(source, -1) {
		fields := parseStructFields(match[2])
		if !isVertexInput(fields) {
			continue
		}
		if layout, ok := buildVertexBufferLayout(fields); ok {
			layouts = append(layouts, layout)
		}
	}
	return layouts
}

func parseStructFields(body string) []parsedField {
	var fields []parsedField
	for _, line := range splitAtTopLevelCommas(body) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		field := parsedField{location: -1, isBuiltin: builtinRegex.MatchString(line)}
		if loc := locationRegex.FindStringSubmatch(line); loc != nil {
			if n, err := strconv.Atoi(loc[1]); err == nil {
				field.location = n
			}
		}
		fm := fieldRegex.FindStringSubmatch(strings.TrimSpace(attributeRegex.ReplaceAllString(line, "")))
		if fm == nil {
			continue
		}
		field.typeName = strings.TrimSpace(fm[2])
		fields = append(fields, field)
	}
	return fields
}

func isVertexInput(fields []parsedField) bool {
	hasLocation := false
	for _, f := range fields {
		if f.isBuiltin {
			return false
		}
		if f.location >= 0 {
			hasLocation = true
		}
	}
	return hasLocation
}

func buildVertexBufferLayout(fields []parsedField) (wgpu.VertexBufferLayout, bool) {
	attrs := make([]wgpu.VertexAttribute, 0, len(fields))
	var offset uint64
	for _, f := range fields {
		info, ok := wgslVertexFormats[f.typeName]
		if !ok {
			return wgpu.VertexBufferLayout{}, false
		}
		attrs = append(attrs, wgpu.VertexAttribute{
			Format:         info.format,
			Offset:         offset,
			ShaderLocation: uint32(f.location),
		})
		offset += info.size
	}
	return wgpu.VertexBufferLayout{
		ArrayStride: offset,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}, true
}

// splitAtTopLevelCommas splits at commas outside angle brackets, so array<T, N> stays whole.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// stripComments removes nested block comments and line comments.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		if i+1 < len(source) {
			switch {
			case source[i] == '/' && source[i+1] == '*':
				depth++
				i++
				continue
			case source[i] == '*' && source[i+1] == '/' && depth > 0:
				depth--
				i++
				continue
			case source[i] == '/' && source[i+1] == '/' && depth == 0:
				for i < len(source) && source[i] != '\n' {
					i++
				}
				if i < len(source) {
					sb.WriteByte('\n')
				}
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}
