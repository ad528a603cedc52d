// Package campaign implements the campaign lifecycle: authoring, the
// draft → scheduled → sending → sent state machine and the guards that
// keep edits, deletes and dispatch honest about the current state.
package campaign
