// Package writers turns search results into serialized outputs.
//
// Design:
//   - Writers are alignment.Visitors; the engine never formats anything.
//   - Coordinates leave the engine 0-based and half-open and are made
//     1-based here, with minus-strand hits mapped back to the forward query.
//   - JSON/JSONL go through pkg/api (v1) for a stable wire format.
package writers
