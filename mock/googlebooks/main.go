package main

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

var requests atomic.Int64

const quotaBody = `{"error":{"code":429,"status":"RESOURCE_EXHAUSTED",` +
	`"message":"Quota exceeded for quota metric 'Queries' and limit 'Queries per minute per user'"}}`

func main() {
	http.HandleFunc("/volumes", func(w http.ResponseWriter, r *http.Request) {
		// Simulate network latency (50-200ms)
		time.Sleep(time.Duration(50+time.Now().UnixNano()%150) * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")

		// Every fourth lookup hits the per-minute limit.
		if requests.Add(1)%4 == 0 {
			w.WriteHeader(http.StatusTooManyRequests)
			if _, err := w.Write([]byte(quotaBody)); err != nil {
				log.Printf("[Google Books] Write error: %v", err)
			}
			log.Printf("[Google Books] %s %s - 429", r.Method, r.URL.RequestURI())
			return
		}

		q := r.URL.Query().Get("q")
		isbn := strings.TrimPrefix(q, "isbn:")
		if isbn == q {
			isbn = "9780000000000"
		}

		body := fmt.Sprintf(`{"totalItems":1,"items":[{"id":"vol-%s","volumeInfo":{`+
			`"title":"Mock volume for %s","authors":["Mock Author"],"publishedDate":"2020",`+
			`"pageCount":320,"categories":["Fiction"],"infoLink":"https://books.google.com/books?id=vol-%s",`+
			`"industryIdentifiers":[{"type":"ISBN_13","identifier":"%s"}],`+
			`"imageLinks":{"thumbnail":"http://books.google.com/books/content?id=vol-%s&zoom=1&edge=curl"}}}]}`,
			isbn, strings.ReplaceAll(q, `"`, ""), isbn, isbn, isbn)

		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(body)); err != nil {
			log.Printf("[Google Books] Write error: %v", err)
		}
		log.Printf("[Google Books] %s %s - 200 OK", r.Method, r.URL.RequestURI())
	})

	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"healthy"}`)); err != nil {
			log.Printf("[Google Books] Health write error: %v", err)
		}
	})

	log.Println("Mock Google Books running on :8083")
	server := &http.Server{
		Addr:         ":8083",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}
