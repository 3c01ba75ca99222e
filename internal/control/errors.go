// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

package control

// CodeFuncPanic marks a control function that panicked during resolution.
const CodeFuncPanic = "CONTROL_FUNC_PANIC"

// Stages of a resolution, reported in the error context.
const (
	StageMapStateToProps = "mapStateToProps"
	StageVisibility      = "visibility"
	StageSetValues       = "setValuesToFormConfig"
)
