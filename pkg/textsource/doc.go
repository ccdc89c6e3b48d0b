// Package textsource produces paced, cancellable sequences of text chunks.
//
// A [Source] turns a prompt into a lazy [iter.Seq] of chunks. Sources hold
// no state shared between invocations: every call to Stream yields a fresh,
// independent sequence, and ranging over the same sequence twice restarts
// it from the first chunk.
//
// Pacing and cancellation are cooperative. Before each chunk the sequence
// checks the context, waits the pacing delay, and checks the context again.
// A cancellation therefore never interrupts a chunk that has already been
// yielded, and it prevents the next one from being emitted.
package textsource
