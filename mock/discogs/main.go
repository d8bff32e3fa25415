package main

import (
	_ "embed"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

//go:embed user.json
var userJSON []byte

//go:embed collection.json
var collectionJSON []byte

var requests atomic.Int64

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body []byte) {
	// Simulate network latency (50-200ms)
	time.Sleep(time.Duration(50+time.Now().UnixNano()%150) * time.Millisecond)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Printf("[Discogs] Write error: %v", err)
	}

	log.Printf("[Discogs] %s %s - %d", r.Method, r.URL.RequestURI(), status)
}

func main() {
	http.HandleFunc("/users/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/collection/folders/0/releases"):
			writeJSON(w, r, http.StatusOK, collectionJSON)
		case strings.Count(strings.Trim(r.URL.Path, "/"), "/") == 1:
			writeJSON(w, r, http.StatusOK, userJSON)
		default:
			http.NotFound(w, r)
		}
	})

	http.HandleFunc("/releases/", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/releases/"))
		if err != nil {
			writeJSON(w, r, http.StatusNotFound, []byte(`{"message":"Release not found."}`))
			return
		}

		// Every fifth detail request is throttled.
		if requests.Add(1)%5 == 0 {
			writeJSON(w, r, http.StatusTooManyRequests, []byte(`{"message":"You are making requests too quickly."}`))
			return
		}

		body := fmt.Sprintf(`{"id":%d,"title":"Release %d","country":"UK","released":"1997-05-21",`+
			`"uri":"https://www.discogs.com/release/%d","genres":["Electronic"],"styles":["Ambient"],`+
			`"tracklist":[{"position":"A1","title":"Intro","duration":"3:12"}],"lowest_price":12.5,"num_for_sale":8}`,
			id, id, id)
		writeJSON(w, r, http.StatusOK, []byte(body))
	})

	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"healthy"}`)); err != nil {
			log.Printf("[Discogs] Health write error: %v", err)
		}
	})

	log.Println("Mock Discogs running on :8082")
	server := &http.Server{
		Addr:         ":8082",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}
