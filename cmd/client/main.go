package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
)

func main() {
	serverURL := flag.String("url", "http://localhost:8080/", "Chart endpoint")
	cedula := flag.String("cedula", "", "Identifier to chart")
	flag.Parse()

	// Send the form exactly as the browser page does
	resp, err := http.PostForm(*serverURL, url.Values{"cedula": {*cedula}})
	if err != nil {
		log.Fatalf("Failed to send request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Failed to read response: %v", err)
	}

	fmt.Fprintf(os.Stderr, "Server Response: %s (request %s)\n", resp.Status, resp.Header.Get("X-Request-ID"))
	fmt.Println(string(body))

	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
