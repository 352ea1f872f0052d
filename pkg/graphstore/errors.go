package graphstore

import "errors"

var (
	ErrNodeNotFound      = errors.New("graphstore: node not found")
	ErrEdgeNotFound      = errors.New("graphstore: edge not found")
	ErrNodeAlreadyExists = errors.New("graphstore: node already exists")
	ErrEdgeAlreadyExists = errors.New("graphstore: edge already exists")
	ErrNodeHasEdges      = errors.New("graphstore: node has incident edges")
	ErrTargetNotLive     = errors.New("graphstore: edge target is not a live entity")
)
