// Package dynamo provides the core primitives shared by the simulation
// packages.
//
//   - [ExecContext]: explicit execution context (device, differentiability,
//     worker count) handed to models, states and integrators
//   - [ParallelFor]: chunked data-parallel loop over the environment batch
//   - sentinel errors and [SimulationError]
//
// # Example
//
//	ctx := dynamo.DefaultExecContext()
//	ctx.RequiresGrad = true
//	model, _ := builder.Finalize(ctx)
//	integ := integrators.NewSemiImplicit(ctx)
//
// # Thread Safety
//
// Nothing in the simulation core is safe for concurrent use by multiple
// callers. Parallelism happens only inside [ParallelFor], where each worker
// owns a disjoint range of environments.
package dynamo
