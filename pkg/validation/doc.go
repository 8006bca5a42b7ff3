// Package validation holds the pure field rules shared by every farm form:
// names, numeric ranges with an optimal band, categorical lists, type-of-object
// selections and measured values. Rules return "" for a valid value or a
// localized message otherwise, so callers can store the result straight into a
// form error map.
package validation
