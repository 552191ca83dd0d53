// Package core defines the data model of the execution core: function
// specs, invocation nodes, their views, session bags, transcript parts and
// the error taxonomy. It has no dependency on any concrete provider SDK and
// no dependency on the scheduler — the runtime package wires the pieces
// defined here into a running system.
package core
