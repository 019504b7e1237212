package memcache

// What a decoded response resolved its command with.
type ReplyKind int

const (
	// Not found / no result.
	ReplyNone ReplyKind = iota

	// A VALUE or VA payload.
	ReplyValue

	// A single line status, see Reply.Stored.
	ReplyStatus
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyValue:
		return "value"
	case ReplyStatus:
		return "status"
	default:
		return "none"
	}
}

// The result of a single Command.
type Reply struct {
	Kind ReplyKind

	// Valid when Kind is ReplyValue.  Never nil for ReplyValue, even when the
	// stored value is empty.
	Value []byte

	// Valid when Kind is ReplyStatus.  True for STORED / DELETED / TOUCHED /
	// OK / HD / EX, false for NOT_STORED / NS.
	Stored bool

	// Why a ReplyNone carries no result (protocol error, timeout, closed
	// connection ...).  Nil for an ordinary miss.
	Err error
}

func valueReply(value []byte) Reply {
	if value == nil {
		value = []byte{}
	}
	return Reply{Kind: ReplyValue, Value: value}
}

func statusReply(stored bool) Reply {
	return Reply{Kind: ReplyStatus, Stored: stored}
}

func noneReply(err error) Reply {
	return Reply{Kind: ReplyNone, Err: err}
}

// Maps a single line status token to its reply.  ok is false for tokens
// which are not plain statuses.
func statusTokenReply(token string) (reply Reply, ok bool) {
	switch token {
	case tokStored, tokDeleted, tokTouched, tokOk, tokMetaHeader, tokMetaExists:
		return statusReply(true), true
	case tokNotStored, tokMetaNotStore:
		return statusReply(false), true
	case tokExists, tokNotFound, tokMetaNotFound, tokMetaMiss:
		return noneReply(nil), true
	}
	return Reply{}, false
}

func isServerErrorToken(token string) bool {
	return token == tokError ||
		token == tokClientError ||
		token == tokServerError
}
