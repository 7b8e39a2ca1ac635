// Package render defines the render-provider boundary and a pool of
// independent views over one trajectory.
//
// A [View] is one stateful rendering context: it is pointed at a frame,
// asked for a render, polled until the payload is available, and finally
// closed. Payloads cross the boundary in transport encoding (base64-wrapped
// PNG), so any provider producing that contract is substitutable; providers
// self-register by name:
//
//   - "raytrace": built-in CPU ball-and-stick raytracer
//
// Views are single-writer: at most one goroutine may drive a view's render
// operations at a time. The pool does not enforce this, the dispatcher does,
// by binding each view to exactly one worker.
package render
