// Package availability mirrors the busy time of a source calendar into an
// availability calendar.
//
// A sync lists the source events in a window, reduces them to busy blocks
// (dropping events shown as available, cancelled or optionally declined ones),
// and then brings the target calendar in line with those blocks. In replace
// mode every target event in the window is deleted and the blocks are created
// afresh. In reconcile mode only the difference is applied.
//
// Events written to the target carry no details from the source: they get a
// fixed summary, are opaque, and are tagged with a private extended property
// so later runs can tell them apart from events a person added by hand.
package availability
