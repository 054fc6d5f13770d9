package tracker

import (
	"path/filepath"
	"time"

	"pricetracker/lib/restyutil"
	"pricetracker/lib/telemetry"

	"github.com/go-resty/resty/v2"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/98.0.4758.102 Safari/537.36"

type FetchOptions struct {
	// when set, every http exchange is dumped to a file under this
	// directory for debugging
	DebugDumpDir string
}

// NewFetchClient builds the shared http client product pages are
// fetched with. Some storefronts serve an empty shell to unknown
// user agents, hence the browser impersonation.
func NewFetchClient(opts FetchOptions) *resty.Client {
	client := resty.New()
	client.SetHeader("user-agent", userAgent)
	client.SetTimeout(time.Second * 30)

	if opts.DebugDumpDir != "" {
		restyutil.InstrumentClient(
			client,
			telemetry.Tracer("tracker/http"),
			restyutil.NewFilesystemOutput(filepath.Join(opts.DebugDumpDir, "fetch")),
		)
	} else {
		telemetry.InstrumentResty(client, "tracker/http")
	}

	return client
}
