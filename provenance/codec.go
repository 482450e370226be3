package provenance

import (
	"fmt"
	"strings"
)

// DecodeArtifact parses an "<name>@<TYPE>" encoding into an Artifact.
//
// The name may contain '@', so only the last token is read as the type and
// all preceding tokens are re-joined as the name. Fails with ErrInvalidInput
// when the encoding is empty, contains no '@', has an empty trailing token,
// or the type token is not a known artifact type.
func DecodeArtifact(s string) (Artifact, error) {
	if s == "" {
		return Artifact{}, fmt.Errorf("%w: artifact encoding is empty", ErrInvalidInput)
	}
	if !strings.Contains(s, "@") {
		return Artifact{}, fmt.Errorf("%w: artifact encoding %q contains no '@'", ErrInvalidInput, s)
	}

	tokens := strings.Split(s, "@")
	name := strings.Join(tokens[:len(tokens)-1], "@")
	last := tokens[len(tokens)-1]
	if last == "" {
		return Artifact{}, fmt.Errorf("%w: artifact encoding %q has an empty type token", ErrInvalidInput, s)
	}

	typ, err := ParseArtifactType(last)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Name: name, Type: typ}, nil
}

// DecodeActor parses an "<name>@<TYPE>@<ACTION>@<DIRECTION>" encoding into
// an Actor.
//
// The last two tokens are read as action and direction; the remaining
// prefix is re-joined with '@' and decoded as the artifact. Fails with
// ErrInvalidInput when the encoding is empty, has fewer than four tokens,
// has an empty action or direction token, or any token fails its enum
// parse.
func DecodeActor(s string) (Actor, error) {
	if s == "" {
		return Actor{}, fmt.Errorf("%w: actor encoding is empty", ErrInvalidInput)
	}
	if !strings.Contains(s, "@") {
		return Actor{}, fmt.Errorf("%w: actor encoding %q contains no '@'", ErrInvalidInput, s)
	}

	tokens := strings.Split(s, "@")
	if len(tokens) < 4 {
		return Actor{}, fmt.Errorf(
			"%w: actor encoding %q needs the form [name]@[type]@[action]@[direction]", ErrInvalidInput, s)
	}

	actionToken := tokens[len(tokens)-2]
	directionToken := tokens[len(tokens)-1]
	if actionToken == "" || directionToken == "" {
		return Actor{}, fmt.Errorf("%w: actor encoding %q has empty trailing tokens", ErrInvalidInput, s)
	}

	artifact, err := DecodeArtifact(strings.Join(tokens[:len(tokens)-2], "@"))
	if err != nil {
		return Actor{}, err
	}
	action, err := ParseActionType(actionToken)
	if err != nil {
		return Actor{}, err
	}
	direction, err := ParseDirection(directionToken)
	if err != nil {
		return Actor{}, err
	}

	return Actor{Artifact: artifact, Action: action, Direction: direction}, nil
}

// ParentArtifact derives the synthetic PROCESS artifact of an event's
// parent from the parent's full actor encoding. Only the first two tokens
// (name@PROCESS) are kept: a parent that spawned work is always a process,
// and the action/direction suffix belongs to the parent's own event, not
// to the parent-child relation.
func ParentArtifact(parentEncoding string) (Artifact, error) {
	if parentEncoding == "" {
		return Artifact{}, fmt.Errorf("%w: parent encoding is empty", ErrInvalidInput)
	}
	tokens := strings.Split(parentEncoding, "@")
	if len(tokens) < 2 {
		return Artifact{}, fmt.Errorf("%w: parent encoding %q contains no '@'", ErrInvalidInput, parentEncoding)
	}
	return DecodeArtifact(strings.Join(tokens[:2], "@"))
}

// EncodeArtifact renders the canonical "<name>@<TYPE>" encoding.
// It is the exact inverse of DecodeArtifact for valid artifacts.
func EncodeArtifact(a Artifact) string {
	return a.Name + "@" + string(a.Type)
}

// EncodeActor renders the canonical "<artifact>@<ACTION>@<DIRECTION>"
// encoding. It is the exact inverse of DecodeActor for valid actors.
func EncodeActor(a Actor) string {
	return EncodeArtifact(a.Artifact) + "@" + string(a.Action) + "@" + string(a.Direction)
}
