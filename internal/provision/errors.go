package provision

import (
	"fmt"

	"github.com/rileyhilliard/wgjoin/internal/controlplane"
	"github.com/rileyhilliard/wgjoin/internal/errors"
)

// fetchError turns a server-info failure into the message the operator sees.
func fetchError(err error, infoURL string) error {
	switch e := err.(type) {
	case *controlplane.UnreachableError:
		what := fmt.Sprintf("Can't reach the control plane at %s", infoURL)
		if e.Timeout() {
			what = fmt.Sprintf("Timed out waiting for the control plane at %s", infoURL)
		}
		return errors.WrapWithCode(err, errors.ErrUnreachable, what,
			"Things to check:\n  "+errors.Checklist(
				"Is the address right? Pass it as 'wgjoin up <host>' or set control_plane",
				"Is the control-plane service running on that host?",
				"Is the port open? Try: curl -v "+infoURL,
			))

	case *controlplane.ServerRejectedError:
		return errors.New(errors.ErrRejected,
			"Control plane refused: "+e.Message,
			"Fix the problem the server reported, then run 'wgjoin up' again")

	case *controlplane.MalformedResponseError:
		return errors.WrapWithCode(err, errors.ErrMalformed,
			"Control plane sent server info wgjoin can't use",
			fmt.Sprintf("Check that %s is the WireGuard info endpoint (endpoints.info)", infoURL))

	default:
		return errors.WrapWithCode(err, errors.ErrUnreachable,
			"Failed to fetch server info",
			"Run with --verbose for request details")
	}
}
