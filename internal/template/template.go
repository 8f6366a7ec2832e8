package template

import (
	_ "embed"
)

//go:embed product_owner.md
var DefaultProductOwner string

//go:embed software_engineer.md
var DefaultSoftwareEngineer string

//go:embed config.yaml
var DefaultConfig string

// DemogenDir is the name of the demogen working directory.
const DemogenDir = ".demogen"

// File name constants for consistent usage across the codebase.
const (
	ConfigFile           = "config.yaml"
	ProductOwnerFile     = "product_owner.md"     // Product owner role instructions
	SoftwareEngineerFile = "software_engineer.md" // Software engineer role instructions
	LogFile              = "log.jsonl"
	ScriptsDir           = "scripts"
	DemosDir             = "demos" // Demo library, relative to the project root
)

// DefaultFiles returns the default files to create in .demogen/
func DefaultFiles() map[string]string {
	return map[string]string{
		ConfigFile:           DefaultConfig,
		ProductOwnerFile:     DefaultProductOwner,
		SoftwareEngineerFile: DefaultSoftwareEngineer,
	}
}
