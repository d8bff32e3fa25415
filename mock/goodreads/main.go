package main

import (
	_ "embed"
	"log"
	"net/http"
	"strings"
	"time"
)

//go:embed user.xml
var userXML []byte

//go:embed shelf.xml
var shelfXML []byte

func writeXML(w http.ResponseWriter, r *http.Request, body []byte) {
	// Simulate network latency (100-300ms)
	time.Sleep(time.Duration(100+time.Now().UnixNano()%200) * time.Millisecond)

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Printf("[Goodreads] Write error: %v", err)
	}

	log.Printf("[Goodreads] %s %s - 200 OK", r.Method, r.URL.RequestURI())
}

func main() {
	http.HandleFunc("/user/show/", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ".xml") {
			http.NotFound(w, r)
			return
		}
		writeXML(w, r, userXML)
	})

	http.HandleFunc("/review/list/", func(w http.ResponseWriter, r *http.Request) {
		// Single page fixture; later pages are empty.
		if p := r.URL.Query().Get("page"); p != "" && p != "1" {
			writeXML(w, r, []byte(`<GoodreadsResponse><reviews start="0" end="0" total="3"></reviews></GoodreadsResponse>`))
			return
		}
		writeXML(w, r, shelfXML)
	})

	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`<health><status>healthy</status></health>`)); err != nil {
			log.Printf("[Goodreads] Health write error: %v", err)
		}
	})

	log.Println("Mock Goodreads running on :8081")
	server := &http.Server{
		Addr:         ":8081",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}
