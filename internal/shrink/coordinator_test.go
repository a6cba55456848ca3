package shrink

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dexweave/internal/buildgraph"
	"dexweave/internal/variant"
)

// fixture builds an app variant (optionally shrinking) and its test variant
// on a shared builder.
func fixture(t *testing.T, appShrinks bool) (*buildgraph.Builder, *variant.BuildVariant, *variant.BuildVariant) {
	t.Helper()
	b := buildgraph.NewBuilder()

	compileApp, err := b.AddStep("compileApp")
	require.NoError(t, err)
	app := &variant.BuildVariant{
		Name:    "app",
		Package: "com.app",
		Compile: &variant.CompileStep{
			Step:      compileApp,
			Classpath: variant.Classpath{"/libs/runtime.jar"},
			DestDir:   "/out/app/classes",
		},
	}
	if appShrinks {
		shrinkApp, err := b.AddStep("shrinkApp")
		require.NoError(t, err)
		cfg := variant.NewShrinkConfiguration("/out/app/app-shrunk.jar")
		cfg.AddInput(app.Compile.DestDir)
		app.Shrink = &variant.ShrinkStep{Step: shrinkApp, Config: cfg}
		require.NoError(t, b.AddEdge("compileApp", "shrinkApp"))
	}

	compileTest, err := b.AddStep("compileAppTest")
	require.NoError(t, err)
	packageTest, err := b.AddStep("packageAppTest")
	require.NoError(t, err)
	test := &variant.BuildVariant{
		Name:    "appTest",
		Package: "com.app.test",
		Tested:  app,
		Compile: &variant.CompileStep{
			Step:      compileTest,
			Classpath: variant.Classpath{"/out/app/classes", "/libs/harness.jar"},
			DestDir:   "/out/appTest/classes",
		},
		Packaging: &variant.PackagingStep{
			Step:          packageTest,
			Inputs:        []string{"/staged/app.jar"},
			Libraries:     []string{"/staged/libs.jar"},
			BootClasspath: variant.Classpath{"/platform/boot.jar"},
		},
	}
	require.NoError(t, b.AddEdge("compileAppTest", "packageAppTest"))
	return b, app, test
}

func TestExtend_NoShrinkingTestedVariantIsNoOp(t *testing.T) {
	b, app, test := fixture(t, false)
	require.NoError(t, Coordinator{}.Extend(b, test))
	assert.Nil(t, app.Shrink)
}

func TestExtend_AddsTestReachabilityInputs(t *testing.T) {
	b, app, test := fixture(t, true)
	require.NoError(t, Coordinator{}.Extend(b, test))

	cfg := app.Shrink.Config
	assert.True(t, cfg.HasInput("/out/appTest/classes"), "test classes must join the input set")
	assert.True(t, cfg.HasLibrary("/libs/harness.jar"), "test classpath must join the library set")

	// The app's own output is already an input; the test classpath entry
	// pointing at it must not be duplicated into the libraries.
	assert.False(t, cfg.HasLibrary("/out/app/classes"), "library set duplicates input set")
}

func TestExtend_WiresShrinkAfterTestCompile(t *testing.T) {
	b, app, test := fixture(t, true)
	require.NoError(t, Coordinator{}.Extend(b, test))

	inputs := app.Shrink.Step.Inputs()
	assert.Contains(t, inputs, "/out/appTest/classes")

	g, err := b.Finalize()
	require.NoError(t, err)
	_, ok := g.Step("shrinkApp")
	require.True(t, ok)
}

func TestExtend_NonTestVariantIsConfigurationError(t *testing.T) {
	b, app, _ := fixture(t, true)
	err := Coordinator{}.Extend(b, app)
	assert.True(t, errors.Is(err, ErrConfiguration), "got %v", err)
}

func TestExtend_IsIdempotentForRepeatedCalls(t *testing.T) {
	b, app, test := fixture(t, true)
	require.NoError(t, Coordinator{}.Extend(b, test))
	require.NoError(t, Coordinator{}.Extend(b, test))

	cfg := app.Shrink.Config
	count := 0
	for _, in := range cfg.Inputs() {
		if in == "/out/appTest/classes" {
			count++
		}
	}
	assert.Equal(t, 1, count, "repeated extension duplicated inputs")

	declared := 0
	for _, in := range app.Shrink.Step.Inputs() {
		if in == "/out/appTest/classes" {
			declared++
		}
	}
	assert.Equal(t, 1, declared, "repeated extension duplicated declared step inputs")
}
