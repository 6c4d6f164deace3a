// Package control provides action policies for the batched ant environment.
//
// Controllers implement [Controller] and map a batch of observations to a
// batch of normalized actions in [-1, 1]:
//
//   - [Zero]: no actuation
//   - [Random]: seeded uniform actions
//   - [Gait]: open-loop sinusoidal trot over hips and ankles
//   - [PD]: joint-space PD toward the rest pose
//
// # Usage
//
//	ctrl := control.NewPD(2.0, 0.1, models.AntRestPose)
//	runner := rollout.New(ant, ctrl)
//	// Controller.Compute is called once per environment step
//
// Controllers implementing [Tunable] support live parameter changes.
package control
