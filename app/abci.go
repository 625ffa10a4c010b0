package app

// Status codes of the consensus callback contract. The engine treats any
// non-zero code as a rejection.
const (
	CodeOK       uint32 = 0
	CodeRejected uint32 = 1
)

// Event type markers attached to staged transactions.
const (
	EventTypeApply   = "apply"
	EventTypeDeliver = "deliver"
)

// Info tags of the staging responses, one per payload kind.
const (
	infoApplyDatabase       = "apply_database"
	infoDeliverMutation     = "deliver_mutation"
	infoDeliverQuerySession = "deliver_query_session"
)

// the reject log of the admission check, the engine relays it to the submitter
const logBadRequest = "bad request"

type (
	// BlockHeader carries the block fields the application consumes from
	// the consensus engine's begin-block call.
	BlockHeader struct {
		Height uint64
		// block timestamp, unix milliseconds
		Time uint64
	}

	// ResponseInfo is the informational handshake reply. The engine uses
	// LastBlockHeight and LastBlockAppHash to decide where to resume replay.
	ResponseInfo struct {
		AppName          string
		Version          string
		AppVersion       uint64
		LastBlockHeight  uint64
		LastBlockAppHash []byte
	}

	ResponseCheckTx struct {
		Code      uint32
		Log       string
		GasWanted int64
	}

	EventAttribute struct {
		Key   string
		Value string
	}

	Event struct {
		Type       string
		Attributes []EventAttribute
	}

	ResponseDeliverTx struct {
		Code   uint32
		Log    string
		Info   string
		Events []Event
	}

	ResponseCommit struct {
		AppHash []byte
		// how many historic blocks the engine may prune, 0 keeps everything
		RetainHeight int64
	}

	// ResponseQuery is always empty, arbitrary historical reads are served
	// by the REST layer against the store directly.
	ResponseQuery struct {
		Code uint32
		Log  string
	}
)
