// Package session composes the graph client and the provenance graph
// behavior behind the façade the API layer consumes. A Session owns the
// database connection for its lifetime, installs the schema constraints
// once at startup, and converts every domain failure into a
// serialization-ready result so raw graph errors never cross the API
// boundary.
package session
