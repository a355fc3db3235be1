//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

// EventSink is the outbound half of one live connection.
// Send must not block on network I/O: transport implementations queue the
// payload and report a full or closed queue as an error, which callers
// treat as a dead connection.
type EventSink interface {
	Send(payload []byte) error
	Close() error
}

// Identity is the authenticated principal bound to a connection.
type Identity struct {
	UserID string
	Roles  []string
}

// IdentityResolver authenticates a connecting client's credential before the
// lifecycle handler binds the connection to a conversation.
type IdentityResolver interface {
	ResolveIdentity(credential string) (Identity, error)
}
