// Package cadence drives the session and frame-loop lifecycle of a VR/AR
// runtime, the way a compositor-backed device stack expects to be driven.
//
// Cadence does not talk to hardware itself. It wraps a runtime backend
// (anything implementing [Backend]) behind explicit handle objects —
// [Instance], [Session], [ReferenceSpace], [Swapchain] — and supplies the
// per-frame cadence those handles require: poll events, wait for the frame
// slot, begin the frame, draw or read poses, end the frame.
//
// # Quick start
//
// Register a backend, open a session, and run frames:
//
//	cadence.RegisterBackend(cadence.NewSimBackend(cadence.SimConfig{}))
//
//	inst, err := cadence.NewInstance(cadence.InstanceConfig{
//		ApplicationName: "my_app",
//		Extensions:      []string{cadence.ExtGraphics},
//	})
//	// handle err
//	defer inst.Destroy()
//
//	session, err := inst.CreateSession(cadence.SessionConfig{})
//	// handle err
//	defer session.Destroy()
//
//	err = session.RunFrames(ctx, func(frame *cadence.Frame) error {
//		// poll poses, render, or print
//		return nil
//	})
//
// Return [Termination] from the frame callback to stop the loop cleanly, or
// cancel the context; both paths end the session before RunFrames returns.
//
// # Poses
//
// Every pose query returns a [PoseSample], a tagged value that is either a
// valid tracked pose or untracked. A controller lying on a table reports
// untracked every frame; callers skip it and keep looping.
//
// # Desktop mirror
//
// For rendering demos, [Run] opens an Ebitengine window that steps the frame
// loop once per tick and mirrors the per-eye swapchain images side by side.
//
// The examples directory holds seven runnable demo programs, from clearing
// each eye to a solid color up to enumerating tracker roles.
package cadence
