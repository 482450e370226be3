package provenance

import "fmt"

// ArtifactType classifies the system resource an artifact refers to.
// It doubles as the graph node label for the materialized artifact.
type ArtifactType string

const (
	ArtifactFile     ArtifactType = "FILE"
	ArtifactRegistry ArtifactType = "REGISTRY"
	ArtifactNetwork  ArtifactType = "NETWORK"
	ArtifactProcess  ArtifactType = "PROCESS"
	ArtifactModule   ArtifactType = "MODULE"
)

// String returns the wire token of the artifact type.
func (t ArtifactType) String() string {
	return string(t)
}

// IsValid returns true if the artifact type is a known value.
func (t ArtifactType) IsValid() bool {
	switch t {
	case ArtifactFile, ArtifactRegistry, ArtifactNetwork, ArtifactProcess, ArtifactModule:
		return true
	default:
		return false
	}
}

// ParseArtifactType parses a wire token into an ArtifactType.
// The match is exact and case-sensitive.
func ParseArtifactType(s string) (ArtifactType, error) {
	if s == "" {
		return "", fmt.Errorf("%w: artifact type token is empty", ErrInvalidInput)
	}
	t := ArtifactType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q is not a valid artifact type", ErrInvalidInput, s)
	}
	return t, nil
}

// AllArtifactTypes returns every valid artifact type value.
func AllArtifactTypes() []ArtifactType {
	return []ArtifactType{
		ArtifactFile,
		ArtifactRegistry,
		ArtifactNetwork,
		ArtifactProcess,
		ArtifactModule,
	}
}

// ActionType names the behavioral operation a process performed against an
// artifact. The value becomes the relationship type of the materialized
// action edge.
type ActionType string

const (
	// process actions
	ActionLaunch       ActionType = "LAUNCH"
	ActionRemoteThread ActionType = "REMOTE_THREAD"
	ActionAccess       ActionType = "ACCESS"
	ActionTampering    ActionType = "TAMPERING"
	// network actions
	ActionConnect ActionType = "CONNECT"
	ActionAccept  ActionType = "ACCEPT"
	// file actions
	ActionCreate           ActionType = "CREATE"
	ActionRename           ActionType = "RENAME"
	ActionDelete           ActionType = "DELETE"
	ActionModify           ActionType = "MODIFY"
	ActionRawAccessRead    ActionType = "RAW_ACCESS_READ"
	ActionCreateStreamHash ActionType = "CREATE_STREAM_HASH"
	// registry actions
	ActionRegAdd    ActionType = "REG_ADD"
	ActionRegDelete ActionType = "REG_DELETE"
	ActionRegSet    ActionType = "REG_SET"
	ActionRegRename ActionType = "REG_RENAME"
	ActionRegQuery  ActionType = "REG_QUERY"
)

// String returns the wire token of the action type.
func (a ActionType) String() string {
	return string(a)
}

// IsValid returns true if the action type is a known value.
func (a ActionType) IsValid() bool {
	switch a {
	case ActionLaunch, ActionRemoteThread, ActionAccess, ActionTampering,
		ActionConnect, ActionAccept,
		ActionCreate, ActionRename, ActionDelete, ActionModify,
		ActionRawAccessRead, ActionCreateStreamHash,
		ActionRegAdd, ActionRegDelete, ActionRegSet, ActionRegRename, ActionRegQuery:
		return true
	default:
		return false
	}
}

// ParseActionType parses a wire token into an ActionType.
// The match is exact and case-sensitive.
func ParseActionType(s string) (ActionType, error) {
	if s == "" {
		return "", fmt.Errorf("%w: action type token is empty", ErrInvalidInput)
	}
	a := ActionType(s)
	if !a.IsValid() {
		return "", fmt.Errorf("%w: %q is not a valid action type", ErrInvalidInput, s)
	}
	return a, nil
}

// AllActionTypes returns every valid action type value.
func AllActionTypes() []ActionType {
	return []ActionType{
		ActionLaunch, ActionRemoteThread, ActionAccess, ActionTampering,
		ActionConnect, ActionAccept,
		ActionCreate, ActionRename, ActionDelete, ActionModify,
		ActionRawAccessRead, ActionCreateStreamHash,
		ActionRegAdd, ActionRegDelete, ActionRegSet, ActionRegRename, ActionRegQuery,
	}
}

// Direction states which side of the action held the pen. It fixes the
// orientation of the materialized edge: DirectionReadRecv points from the
// action artifact to the process, every other direction points from the
// process to the action artifact.
type Direction string

const (
	DirectionReadRecv  Direction = "READ_RECV"
	DirectionWriteSend Direction = "WRITE_SEND"
	DirectionLaunch    Direction = "LAUNCH"
	DirectionNotActor  Direction = "NOT_ACTOR"
)

// String returns the wire token of the direction.
func (d Direction) String() string {
	return string(d)
}

// IsValid returns true if the direction is a known value.
func (d Direction) IsValid() bool {
	switch d {
	case DirectionReadRecv, DirectionWriteSend, DirectionLaunch, DirectionNotActor:
		return true
	default:
		return false
	}
}

// ParseDirection parses a wire token into a Direction.
// The match is exact and case-sensitive.
func ParseDirection(s string) (Direction, error) {
	if s == "" {
		return "", fmt.Errorf("%w: direction token is empty", ErrInvalidInput)
	}
	d := Direction(s)
	if !d.IsValid() {
		return "", fmt.Errorf("%w: %q is not a valid direction", ErrInvalidInput, s)
	}
	return d, nil
}

// AllDirections returns every valid direction value.
func AllDirections() []Direction {
	return []Direction{DirectionReadRecv, DirectionWriteSend, DirectionLaunch, DirectionNotActor}
}

// Artifact is the typed identity of a system resource. Within a type label
// no two graph nodes may share the same encoded artifact string.
type Artifact struct {
	// Name is the resource name. It may itself contain '@'.
	Name string `json:"name"`

	// Type classifies the resource and selects the node label.
	Type ArtifactType `json:"type"`
}

// String returns the canonical "<name>@<TYPE>" encoding.
func (a Artifact) String() string {
	return EncodeArtifact(a)
}

// Actor is a decoded behavioral event: an artifact, the action taken
// against it, and the direction the data flowed.
type Actor struct {
	Artifact  Artifact   `json:"artifact"`
	Action    ActionType `json:"action"`
	Direction Direction  `json:"direction"`
}

// String returns the canonical "<artifact>@<ACTION>@<DIRECTION>" encoding.
func (a Actor) String() string {
	return EncodeActor(a)
}
