// Package viz renders simulation runs in the terminal.
//
//   - [Watch]: live Bubble Tea view of a run in progress
//   - [PlotRun], [PlotSummary]: asciigraph charts of finished runs
//   - [Summary]: styled report of a finished run
//
// # Key Bindings (Watch)
//
//	Tab   - Cycle the charted variable
//	Q     - Stop the run and quit
package viz
