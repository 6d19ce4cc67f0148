package client

import (
	"fmt"

	"github.com/MasterOfPuppets/wradio/internal/player"
)

// The four user-facing error strings. Raw engine codes never reach the UI;
// only the unknown fallback carries the code name for diagnostics.
const (
	errPlayerNetwork     = "No connection. Check your network and try again."
	errPlayerOffline     = "This station appears to be offline."
	errPlayerUnsupported = "This stream format is not supported."
)

func userFriendlyError(err *player.Error) string {
	switch err.Code {
	case player.CodeNetworkConnectionFailed,
		player.CodeNetworkConnectionTimeout:
		return errPlayerNetwork

	case player.CodeBadHTTPStatus,
		player.CodeNotFound,
		player.CodeInvalidContentType:
		return errPlayerOffline

	case player.CodeDecodingFailed,
		player.CodeDecodingFormatUnsupported:
		return errPlayerUnsupported

	default:
		return fmt.Sprintf("Playback failed (%s).", err.Code.Name())
	}
}
