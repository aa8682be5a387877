package testutil

// FixedRunID returns the same run id every time. It satisfies
// journal.RunIDGenerator, so two recordings of one scenario produce
// byte-identical journals.
type FixedRunID struct {
	id string
}

// NewFixedRunID creates a fixed run id generator. An empty id becomes
// "test-run-default".
func NewFixedRunID(id string) *FixedRunID {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunID{id: id}
}

// Generate returns the fixed id.
func (g *FixedRunID) Generate() string {
	return g.id
}
