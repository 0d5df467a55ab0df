package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/mkarpov/usagevault/internal/devserver"
	"github.com/mkarpov/usagevault/internal/logging"
	"github.com/mkarpov/usagevault/internal/shell"
)

func main() {

	port := flag.Int("port", 8080, "port to listen on")
	flag.Parse()

	logger := logging.NewDefault()
	srv := devserver.New(shell.FS(), logger)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("dev server listening on http://localhost%s", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		log.Fatalf("%v", err)
	}

}
