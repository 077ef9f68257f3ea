// Command mock-catalog serves a small fake catalog site for local runs of
// catalogpipe scrape.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/talentsift/catalog-pipeline/internal/logging"
	"github.com/talentsift/catalog-pipeline/internal/mockcatalog"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8931", "listen address")
	pageSize := flag.Int("page-size", 3, "assessments per listing page")
	flag.Parse()

	logger := logging.New(logging.Options{Format: "text"})
	srv := mockcatalog.New(mockcatalog.Sample(), *pageSize)

	logger.Info("mock catalog listening", "addr", *addr)
	if err := http.ListenAndServe(*addr, srv.Handler()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
