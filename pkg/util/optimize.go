package util

import (
	"context"

	"gonum.org/v1/gonum/optimize"
)

// CtxRecorder stops a gonum optimization as soon as ctx is done. Plug it into
// optimize.Settings.Recorder; Minimize then returns ctx.Err().
type CtxRecorder struct {
	Ctx context.Context
}

func (r CtxRecorder) Init() error { return r.Ctx.Err() }

func (r CtxRecorder) Record(*optimize.Location, optimize.Operation, *optimize.Stats) error {
	return r.Ctx.Err()
}

var _ optimize.Recorder = CtxRecorder{}
