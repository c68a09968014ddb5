// Package pipeline edits and validates hiring pipelines before they are
// saved.
//
// Stage order is derived, not chosen: stages are grouped by type in the
// fixed precedence sourcing < screening < interview < offer < hired <
// rejected, kept in their previous relative order inside a group, and
// renumbered 10, 20, 30, ... after every structural edit. Dragging only
// reorders stages within one type group.
package pipeline
