// Package server is a minimal TCP web server that hands each connection to a worker pool.
package server

const (
	statusOK       = "HTTP/1.1 200 OK"
	statusNotFound = "HTTP/1.1 404 NOT FOUND"
	statusError    = "HTTP/1.1 500 INTERNAL SERVER ERROR"

	helloFile    = "hello.html"
	notFoundFile = "404.html"
)

// Route is the result of matching a request line.
type Route struct {
	Status string
	File   string
	// Sleep marks the slow route; the job waits SleepDelay before reading the file.
	Sleep bool
}

// Match maps a request line to its route. Only exact request lines match.
func Match(requestLine string) Route {
	switch requestLine {
	case "GET / HTTP/1.1":
		return Route{Status: statusOK, File: helloFile}
	case "GET /sleep HTTP/1.1":
		return Route{Status: statusOK, File: helloFile, Sleep: true}
	default:
		return Route{Status: statusNotFound, File: notFoundFile}
	}
}
