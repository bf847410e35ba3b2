// Package ui implements a terminal progress view using bubbletea's Elm architecture.
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Conversion progress flows through the event channel produced by the tasks package, providing non-blocking status reporting.
//
// The running view shows a spinner, a progress bar, and a rolling window of
// recent track results; the terminal view shows the destination link and the
// tracks that could not be matched. Pressing q cancels the conversion
// through the supplied context cancel function.
package ui
