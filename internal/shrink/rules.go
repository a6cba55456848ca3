package shrink

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrConfiguration marks an unsupported combination of host-build state. It
// fails the setup phase before any step runs.
var ErrConfiguration = errors.New("unsupported build configuration")

func configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// defaultRules is the fixed, versioned default rule block, grouped by
// concern. It is emitted verbatim whenever no per-variant override is
// supplied; two runs over identical inputs produce byte-identical text.
var defaultRules = []string{
	"# dexweave default shrink rules, v1",
	"",
	"# platform framework survival",
	"-dontwarn android.**",
	"-keep public class * extends android.app.Activity",
	"-keep public class * extends android.app.Application",
	"-keep public class * extends android.app.Service",
	"-keep public class * extends android.content.BroadcastReceiver",
	"-keep public class * extends android.content.ContentProvider",
	"-keep public class * extends android.app.Instrumentation",
	"",
	"# test harness survival",
	"-keep class junit.** { *; }",
	"-dontwarn junit.**",
	"-keep class org.junit.** { *; }",
	"-dontwarn org.junit.**",
	"-keep class android.test.** { *; }",
	"-dontwarn android.test.**",
	"",
	"# secondary-language runtime survival",
	"-keep class groovy.** { *; }",
	"-keep class org.codehaus.groovy.** { *; }",
	"-dontwarn org.codehaus.groovy.**",
	"-keepclassmembers class * { void $getStaticMetaClass(); }",
	"",
	"# attribute preservation",
	"-keepattributes *Annotation*,Signature,InnerClasses,EnclosingMethod,SourceFile,LineNumberTable",
}

// DefaultRules returns a copy of the default rule block.
func DefaultRules() []string {
	return append([]string(nil), defaultRules...)
}

// LoadOverride reads a per-variant rule file. The result fully replaces the
// default block; overrides never merge.
func LoadOverride(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, configf("reading shrink rule override %q: %v", path, err)
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return strings.Split(strings.TrimRight(text, "\n"), "\n"), nil
}

// KeepPackageRule builds the keep-everything rule for one package subtree.
func KeepPackageRule(pkg string) string {
	return fmt.Sprintf("-keep class %s.** { *; }", pkg)
}
