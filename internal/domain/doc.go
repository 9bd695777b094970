// Package domain defines the core business types for the offer finder.
//
// Types in this package are pure value objects with no network, storage or
// HTTP concerns. They are the shared language between network adapters, the
// scorer, the aggregator and the presentation layer.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No http.Client, no context.Context in struct fields
//   - JSON tags are allowed (they're metadata, not behavior)
//   - Validation methods are allowed (they're pure functions on the type)
//   - Constants, enums and sentinel errors belong here
package domain
