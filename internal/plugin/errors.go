// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

package plugin

// Error codes attached to oops errors produced while loading plugins.
const (
	CodeManifestEmpty   = "MANIFEST_EMPTY"
	CodeManifestInvalid = "MANIFEST_INVALID"
	CodeSchemaInvalid   = "SCHEMA_INVALID"
	CodeIconUnavailable = "ICON_UNAVAILABLE"
	CodeSourceFailed    = "SOURCE_FAILED"
)
