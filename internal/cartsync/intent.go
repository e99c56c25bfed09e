package cartsync

// Kind names a user intent.
type Kind string

const (
	KindRefresh      Kind = "refresh"
	KindRefreshBadge Kind = "refresh_badge"
	KindAdd          Kind = "add"
	KindSetQuantity  Kind = "set_quantity"
	KindRemove       Kind = "remove"
	KindCheckout     Kind = "checkout"
)

// Intent is one queued user action.
type Intent struct {
	ID        string
	Kind      Kind
	ProductID int64
	// Quantity is the count for Add and the signed delta for SetQuantity.
	Quantity int
}

// State is the lifecycle state of the engine's snapshot.
type State int

const (
	// Uninitialized: no cart has been fetched yet.
	Uninitialized State = iota
	// Synced: the snapshot is the backend's most recent answer.
	Synced
	// LoggedOut: the session was cleared and the snapshot reset to empty.
	LoggedOut
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Synced:
		return "synced"
	case LoggedOut:
		return "logged_out"
	}
	return "unknown"
}
