package szz

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned for a state change the pipeline does not allow.
var ErrInvalidTransition = errors.New("invalid state transition")

// FixState is the progress of one fix commit through the pipeline.
type FixState string

const (
	PendingFiles        FixState = "pending_files"
	PerFileDiffComputed FixState = "diff_computed"
	PerFileBlamed       FixState = "blamed"
	Aggregated          FixState = "aggregated"
	OriginFound         FixState = "origin_found"
	OriginNotFound      FixState = "origin_not_found"
)

// FileState is the progress of one file of a fix commit.
type FileState string

const (
	FilePending      FileState = "pending"
	FileDiffComputed FileState = "diff_computed"
	FileBlamed       FileState = "blamed"
	FileSkipped      FileState = "skipped"
)

var fixTransitions = map[FixState][]FixState{
	// A fix that cannot be diffed (missing, root, skipped merge) ends early.
	PendingFiles:        {PerFileDiffComputed, OriginNotFound},
	PerFileDiffComputed: {PerFileBlamed},
	PerFileBlamed:       {Aggregated},
	Aggregated:          {OriginFound, OriginNotFound},
}

var fileTransitions = map[FileState][]FileState{
	FilePending:      {FileDiffComputed, FileSkipped},
	FileDiffComputed: {FileBlamed, FileSkipped},
}

// Terminal reports whether s ends the pipeline.
func (s FixState) Terminal() bool {
	return s == OriginFound || s == OriginNotFound
}

// Next moves from s to to, rejecting anything but a forward step.
func (s FixState) Next(to FixState) (FixState, error) {
	for _, allowed := range fixTransitions[s] {
		if allowed == to {
			return to, nil
		}
	}
	return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, to)
}

// Next moves from s to to, rejecting anything but a forward step.
func (s FileState) Next(to FileState) (FileState, error) {
	for _, allowed := range fileTransitions[s] {
		if allowed == to {
			return to, nil
		}
	}
	return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, to)
}
