package history

// Common holds the fields every history request carries.
type Common struct {
	// GroupName is the group the window applies to.
	GroupName string

	// History is the window, still owned by the subscription.
	History History
}

// Base returns the shared request fields.
func (c Common) Base() Common { return c }

// Request describes one active replay window to the replay engine.
// It is implemented by TagRequest and PredicateRequest.
type Request interface {
	Base() Common
	request()
}

// TagRequest scopes a window to a tag. Tag 0 means the whole group.
type TagRequest struct {
	Common
	Tag uint16
}

// PredicateRequest scopes a window to messages matching a predicate.
type PredicateRequest struct {
	Common
	PredicateType uint8
	Predicate     string
}

func (TagRequest) request()       {}
func (PredicateRequest) request() {}

// Compile-time interface satisfaction checks.
var (
	_ Request = TagRequest{}
	_ Request = PredicateRequest{}
)
