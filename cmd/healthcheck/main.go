package main

import (
	"net/http"
	"os"
)

func main() {
	addr := "http://localhost:8080/__admin/health"
	if len(os.Args) > 1 {
		addr = os.Args[1]
	}
	resp, err := http.Get(addr)
	if err != nil || resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
