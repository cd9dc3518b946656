package compiler

// Output constants
const (
	// GeneratorName appears in the header of generated files.
	GeneratorName = "peepgen"

	// OutputFileMode is the permission of generated and snapshot files.
	OutputFileMode = 0o644
)
