// Package config parses the YAML build description the CLI consumes: the
// variant set, tool binaries and global paths.
package config

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrInvalid marks a build description that requests an unsupported or
// inconsistent combination of state. It fails the setup phase before any
// step runs.
var ErrInvalid = errors.New("invalid build description")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// PackagingMode selects the deployable container a variant produces.
type PackagingMode string

const (
	PackagingDex PackagingMode = "dex"
	PackagingJar PackagingMode = "jar"
)

// Tool is one external tool invocation: a binary and fixed leading args.
type Tool struct {
	Binary string   `yaml:"binary"`
	Args   []string `yaml:"args,omitempty"`
}

// Compilers names the two language compilers of a joint compile.
type Compilers struct {
	Primary   Tool `yaml:"primary"`
	Secondary Tool `yaml:"secondary"`
}

// Variant describes one configured build output.
type Variant struct {
	Name    string `yaml:"name"`
	Package string `yaml:"package"`

	// Tests names the tested variant; empty for non-test variants.
	Tests string `yaml:"tests,omitempty"`

	SourceDirs []string `yaml:"sourceDirs"`
	Classpath  []string `yaml:"classpath,omitempty"`

	Packaging PackagingMode `yaml:"packaging,omitempty"`

	// Shrink enables the variant's shrink step.
	Shrink bool `yaml:"shrink,omitempty"`

	// ShrinkRulesFile, when set, fully replaces the default rule block for
	// this variant's dedicated shrink pass.
	ShrinkRulesFile string `yaml:"shrinkRulesFile,omitempty"`

	// StagedInputs and StagedLibraries are archives already staged for the
	// variant's packaging step.
	StagedInputs    []string `yaml:"stagedInputs,omitempty"`
	StagedLibraries []string `yaml:"stagedLibraries,omitempty"`
}

// Build is the root of the build description.
type Build struct {
	OutputDir     string    `yaml:"outputDir"`
	BootClasspath []string  `yaml:"bootClasspath,omitempty"`
	Compilers     Compilers `yaml:"compilers"`
	Shrinker      Tool      `yaml:"shrinker"`
	Variants      []Variant `yaml:"variants"`
}

// Parse unmarshals and validates a build description.
func Parse(data []byte) (*Build, error) {
	var b Build
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, invalidf("parsing YAML: %v", err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Validate checks structural consistency. All violations are terminal for
// the setup phase.
func (b *Build) Validate() error {
	if b.OutputDir == "" {
		return invalidf("outputDir is required")
	}
	if len(b.Variants) == 0 {
		return invalidf("at least one variant is required")
	}

	byName := make(map[string]*Variant, len(b.Variants))
	for i := range b.Variants {
		v := &b.Variants[i]
		if v.Name == "" {
			return invalidf("variant name is required")
		}
		if v.Package == "" {
			return invalidf("variant %q: package is required", v.Name)
		}
		if _, dup := byName[v.Name]; dup {
			return invalidf("duplicate variant name: %q", v.Name)
		}
		switch v.Packaging {
		case "", PackagingDex, PackagingJar:
		default:
			return invalidf("variant %q: unsupported packaging mode %q", v.Name, v.Packaging)
		}
		byName[v.Name] = v
	}

	for i := range b.Variants {
		v := &b.Variants[i]
		if v.Tests == "" {
			continue
		}
		tested, ok := byName[v.Tests]
		if !ok {
			return invalidf("variant %q tests unknown variant %q", v.Name, v.Tests)
		}
		if tested.Tests != "" {
			return invalidf("variant %q tests a test variant %q", v.Name, v.Tests)
		}
		if v.Tests == v.Name {
			return invalidf("variant %q tests itself", v.Name)
		}
	}
	return nil
}

// Mode returns the variant's packaging mode with the default applied.
func (v *Variant) Mode() PackagingMode {
	if v.Packaging == "" {
		return PackagingDex
	}
	return v.Packaging
}
