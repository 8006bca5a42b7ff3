// Package form implements the per-screen state container used by the farm
// create/edit flows. A Container keeps the values addressed by dotted paths,
// the error map produced by rules watching those paths, and named UI flags.
// Submit re-validates, encodes the values and hands them to a Submitter while
// further submits are rejected; the outcome is reported through a transient
// modal that auto-dismisses on a timer owned by the container. Close cancels
// the in-flight request and every pending timer.
package form
