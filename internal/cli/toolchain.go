package cli

import (
	"os"

	"dexweave/internal/config"
	"dexweave/internal/introspect"
	"dexweave/internal/jointc"
	"dexweave/internal/shrink"
)

// Env var fallbacks for tool binaries the build description leaves unset;
// typically provided through a .env file loaded at the binary boundary.
const (
	envPrimaryCompiler   = "DEXWEAVE_PRIMARY_COMPILER"
	envSecondaryCompiler = "DEXWEAVE_SECONDARY_COMPILER"
	envShrinker          = "DEXWEAVE_SHRINKER"
)

// Toolchain bundles the external collaborators a build needs. Tests inject
// fakes; production runs use the exec-backed defaults.
type Toolchain struct {
	Detector  jointc.Detector
	Primary   jointc.Compiler
	Secondary jointc.Compiler
	Shrinker  shrink.Shrinker
}

// DefaultToolchain builds the exec-backed toolchain from the build
// description, falling back to environment variables for unset binaries.
func DefaultToolchain(cfg *config.Build) *Toolchain {
	return &Toolchain{
		Detector: introspect.NewDetector(),
		Primary: &jointc.ExecCompiler{
			Role:   "primary",
			Binary: orEnv(cfg.Compilers.Primary.Binary, envPrimaryCompiler),
			Args:   cfg.Compilers.Primary.Args,
		},
		Secondary: &jointc.ExecCompiler{
			Role:   "secondary",
			Binary: orEnv(cfg.Compilers.Secondary.Binary, envSecondaryCompiler),
			Args:   cfg.Compilers.Secondary.Args,
		},
		Shrinker: &shrink.ExecShrinker{
			Binary: orEnv(cfg.Shrinker.Binary, envShrinker),
			Args:   cfg.Shrinker.Args,
		},
	}
}

func orEnv(value, envKey string) string {
	if value != "" {
		return value
	}
	return os.Getenv(envKey)
}
