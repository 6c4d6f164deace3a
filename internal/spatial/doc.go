// Package spatial implements the rigid-body algebra used by the articulated
// integrator: quaternions and transforms on top of gonum's r3 and quat
// packages, and 6D spatial motion/force vectors with spatial inertias.
//
// Spatial vectors are expressed in world coordinates at the world origin,
// angular part first: a twist is (w, v0) where v0 is the velocity of the
// body point currently coincident with the origin. Quaternions are stored in
// flat state arrays as (x, y, z, w).
package spatial
