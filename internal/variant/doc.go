// Package variant defines the domain models for build-variant augmentation.
//
// It is intentionally split from the engines that operate on these models
// (introspect, jointc, shrink, archive):
//   - BuildVariant: one configured build output with handles to its steps
//   - Classpath: ordered path sequence with canonical-path set operations
//   - ShrinkConfiguration: the mutable input/library/rule state of one shrink
//     invocation
//   - EntryKey: the canonical join key between compiled output trees and
//     archive entries
//
// All path comparisons in this package are by canonical string equality,
// never by file content.
package variant
