// Package model defines the farm domain types shared by the validation rules,
// form containers, the selection cascade and the remote store proxies. Entities
// mirror the REST backend payloads (fields, pens, type-of-objects, variables,
// reports, measurements). Variable default values travel as a FormValue, a
// tagged union with an explicit Kind so callers never have to inspect the shape
// of a payload to know whether it describes a numeric range or a categorical
// list. Decoding still accepts the legacy untagged shapes the backend stores.
package model
