// Package kernel implements the tiled 2D convolution on the CPU.
//
// The output domain is split into groups by an ndrange.NDRange. Each group
// executes in three strictly ordered steps:
//
//  1. Cooperative load: every worker of the group copies its share of the
//     halo-extended input tile into the group's scratch tile using the
//     strided covering loop (ndrange.Cover).
//  2. Barrier: no worker reads scratch until every worker has finished
//     loading.
//  3. Evaluate: every worker computes one output pixel as the weighted sum
//     of the filter footprint over scratch and writes it once to the output.
//
// Groups share nothing but the read-only input and filter, and write
// disjoint output regions, so they run on a parallel.GroupPool in any order.
//
// Two execution modes express the barrier differently:
//
//   - ModeGoroutines runs each worker on its own goroutine and separates the
//     phases with a parallel.Barrier.
//   - ModePhased runs the whole group on one goroutine, loading for all
//     workers before evaluating for any; the phase boundary is the barrier.
//
// Both modes produce bit-identical output, equal to Reference.
package kernel
