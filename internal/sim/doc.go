// Package sim holds the static and dynamic halves of a batched articulated
// simulation.
//
// A [Model] is built once by a [ModelBuilder] from an [ArticulationDesc]
// repeated for every environment, and is read-only after Finalize. A [State]
// carries the generalized coordinates of the whole batch as (numEnvs x dim)
// matrices, so row i is always environment i. States are value-semantic:
// integrators return a new State instead of mutating their input, and in
// gradient-tracking mode the new State keeps a link to the State it was
// computed from (see [State.GraphLen]).
package sim
