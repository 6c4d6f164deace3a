// Package render provides renderer collaborators for the ant environment.
//
// Renderers receive the simulation state once per environment step:
//
//   - [FrameRecorder]: buffers body poses and writes them as JSON files
//     every time the environment asks it to save
//   - [LiveRenderer]: streams poses into a bubbletea program ([LiveModel])
//     that draws a side view and a torso height chart in the terminal
//
// Both implement env.ModelBinder and must be bound to a model before use;
// the environment does this when the renderer is attached.
package render
