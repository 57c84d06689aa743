// Package access is the boundary an agent loop consumes: connect to a
// repository, run tools against it, and clean up afterwards.
//
// Two sessions implement it. Local runs the cache and dispatcher in-process
// without isolation. Remote drives a sandboxed worker through the client.
// Both return tool failures as "Error: ..." text rather than Go errors.
package access
