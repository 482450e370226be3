// Package provenance implements the compact wire encoding used by host
// sensors to describe system-call level behavior.
//
// A sensor reports each behavioral event as an at-sign separated string.
// An artifact encodes as "<name>@<TYPE>" and an actor encodes as
// "<name>@<TYPE>@<ACTION>@<DIRECTION>". Artifact names may themselves
// contain '@' (registry paths, network endpoints with credentials), so
// decoding always consumes enum tokens from the right and re-joins the
// remaining prefix as the name.
//
// The package is pure: it performs no I/O and decodes at the ingestion
// boundary into the typed Artifact and Actor values that the rest of the
// engine operates on. Raw encodings never travel past this package.
//
// Example:
//
//	actor, err := provenance.DecodeActor("C:\\Windows\\explorer.exe@PROCESS@LAUNCH@WRITE_SEND")
//	if err != nil {
//	    // malformed encodings always surface as ErrInvalidInput
//	}
//	actor.Artifact.Type // provenance.ArtifactProcess
//	actor.Action        // provenance.ActionLaunch
package provenance
