package logger

import (
	"fmt"
	"log/slog"
)

/*
Log attribute key values. Generally shouldn't be used directly, use
appropriate "attribute constructor function" instead.

Only define names here if they are common for multiple packages, package
specific names should be defined in the package.
*/
const (
	NodeIDKey = "node_id"
	ErrorKey  = "err"
	RoundKey  = "round"
	TxIDKey   = "tx_id"
	DataKey   = "data"
)

/*
NodeID adds the node identifier field.

This function should be used with logger.With() method to create a sub-logger
for the node (rather than adding NodeID call to individual logging calls).
*/
func NodeID(id string) slog.Attr {
	return slog.String(NodeIDKey, id)
}

/*
Error adds error to the log

	if err := f(); err != nil {
		log.Error("calling f", logger.Error(err))
	}
*/
func Error(err error) slog.Attr {
	return slog.Any(ErrorKey, err)
}

// Round is the consensus block height the logging call is associated with.
func Round(round uint64) slog.Attr {
	return slog.Uint64(RoundKey, round)
}

// TxID is used to log the transaction the logging call is associated with.
func TxID(id []byte) slog.Attr {
	return slog.String(TxIDKey, fmt.Sprintf("%X", id))
}

/*
Data adds additional data field to the message.

Use of anonymous types as the value is discouraged.
*/
func Data(d any) slog.Attr {
	return slog.Any(DataKey, d)
}
