package cascade

// State is the position of the cascade in its lifecycle.
type State int

const (
	PenUnset State = iota
	PenSet
	ObjectSet
	VariablesSet
)

func (s State) String() string {
	switch s {
	case PenUnset:
		return "pen_unset"
	case PenSet:
		return "pen_set"
	case ObjectSet:
		return "object_set"
	case VariablesSet:
		return "variables_set"
	default:
		return "unknown"
	}
}

// Tier names one level of the cascade.
type Tier int

const (
	TierPen Tier = iota
	TierTypeOfObject
	TierVariable
	tierCount
)

func (t Tier) String() string {
	switch t {
	case TierPen:
		return "pen"
	case TierTypeOfObject:
		return "type_of_object"
	case TierVariable:
		return "variable"
	default:
		return "unknown"
	}
}

// Placeholder message ids.
const (
	MsgLoading         = "notices.cascade.loading"
	MsgNoPens          = "notices.cascade.noPens"
	MsgNoTypeOfObjects = "notices.cascade.noTypeOfObjects"
	MsgNoVariables     = "notices.cascade.noVariables"
)

func emptyMessage(t Tier) string {
	switch t {
	case TierPen:
		return MsgNoPens
	case TierTypeOfObject:
		return MsgNoTypeOfObjects
	default:
		return MsgNoVariables
	}
}
