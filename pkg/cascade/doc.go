// Package cascade implements the dependent Pen -> Type-of-Object -> Variable
// selection used by the measurement flows. Selecting an upper tier resets every
// lower tier and fetches the options of the next one. Each tier carries a
// generation counter; a fetch is tagged with the generation that triggered it
// and its result is dropped when the tier changed before it resolved.
package cascade
