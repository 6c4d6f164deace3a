// Package env exposes batched articulated simulations as reinforcement
// learning environments.
//
// An environment owns its Model, its current State and an integrator. All
// environments of a batch advance together: Step takes one action row per
// environment and returns one observation row, reward, termination and
// truncation flag per environment. Environments that terminate or truncate
// are reset before Step returns, so the returned observation of such an
// environment is already its reset observation while reward and flags
// describe the transition that ended the episode.
//
// Gradient tracking follows the ExecContext: with RequiresGrad set every
// step extends the history of the live State, and ClearGrad or
// InitializeTrajectory cut that history without changing any value.
package env
