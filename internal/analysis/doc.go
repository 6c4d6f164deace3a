// Package analysis provides dynamics diagnostics for ant rollouts.
//
//   - [Sensitivity]: growth rate of a small state perturbation, split into
//     steps where ground contact changes and steps where it does not
//   - [Spectrum]: power spectrum of a sampled series, e.g. torso height,
//     for reading off gait frequencies
//   - [NewPhasePortrait]: joint angle against joint velocity
//
// # Contact sensitivity
//
// Contacts make the dynamics stiff: perturbations grow much faster across
// contact events than in flight, which is what makes gradients through
// long rollouts noisy.
//
//	res, err := analysis.Sensitivity(ctx, cfg, analysis.SensitivityOptions{Steps: 300})
//	fmt.Println(res.ContactGrowth, res.FreeGrowth)
package analysis
