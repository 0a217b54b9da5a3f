// Package memory implements vector-backed long-term memory for a
// conversational persona. Facts are embedded, persisted as points in a
// named collection (one collection per character), and recalled by
// cosine similarity with deduplication and date-aware formatting.
//
// Architecture:
//   - Embedder: text-to-vector conversion (mock for tests, OpenAI or
//     local ONNX for real use, ristretto-cached wrapper for either)
//   - Index: vector collection backend (embedded chromem-go, or a
//     qdrant server)
//   - Store: binds one collection to an embedder and an index and owns
//     the retrieval, formatting and upsert logic
//
// Retrieval intentionally reproduces the reference system's quirks:
// Recall discards its single top-ranked hit before deduplicating, and
// RecentSince degrades to an empty result on any failure rather than
// surfacing an error into the chat turn.
package memory
