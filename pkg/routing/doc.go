// Package routing classifies user-facing model ids.
//
// A model id is matched, case-insensitively, against an ordered table of
// provider markers. The first marker contained in the id selects the
// provider and decides whether the model is premium; ids that match nothing
// go to the default provider. The adapter then resolves the id to its
// canonical model through its alias table.
//
// Because matching is by substring, an id that contains two markers (for
// example "claude-vs-gemini") always resolves to the earlier marker in the
// table. New model names from a known provider route without a code change.
package routing
