package positioner

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

var ErrStopped = errors.New("positioner runtime stopped")

// Entry is one journaled command with the registry digest taken right after it ran.
type Entry struct {
	Seq     uint64  `json:"seq"`
	Time    string  `json:"time"`
	Command Command `json:"command"`
	Result  Result  `json:"result"`
	Digest  string  `json:"digest"`
}

type EntrySink interface {
	WriteEntry(e Entry) error
}

type cmdReq struct {
	Cmd  Command
	Resp chan cmdResp
}

type cmdResp struct {
	Res Result
	Err error
}

// Runtime owns a Registry and applies commands to it one at a time from Run's goroutine.
type Runtime struct {
	reg *Registry
	log *log.Logger

	cmds chan cmdReq
	stop chan struct{}
	once sync.Once

	sinks []EntrySink
	seq   uint64
	now   func() time.Time
}

func NewRuntime(reg *Registry, logger *log.Logger) *Runtime {
	if logger == nil {
		logger = log.Default()
	}
	return &Runtime{
		reg:  reg,
		log:  logger,
		cmds: make(chan cmdReq, 64),
		stop: make(chan struct{}),
		now:  time.Now,
	}
}

// AddSink registers a journal sink. Call before Run.
func (rt *Runtime) AddSink(s EntrySink) {
	if s != nil {
		rt.sinks = append(rt.sinks, s)
	}
}

func (rt *Runtime) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-rt.stop:
			return nil
		case req := <-rt.cmds:
			res, err := rt.reg.Apply(req.Cmd)
			if err == nil && req.Cmd.Kind.Mutates() {
				rt.record(req.Cmd, res)
			}
			req.Resp <- cmdResp{Res: res, Err: err}
		}
	}
}

func (rt *Runtime) Stop() {
	rt.once.Do(func() { close(rt.stop) })
}

func (rt *Runtime) record(cmd Command, res Result) {
	rt.seq++
	if len(rt.sinks) == 0 {
		return
	}
	e := Entry{
		Seq:     rt.seq,
		Time:    rt.now().UTC().Format(time.RFC3339Nano),
		Command: cmd,
		Result:  res,
		Digest:  rt.reg.Digest(),
	}
	for _, s := range rt.sinks {
		if err := s.WriteEntry(e); err != nil {
			rt.log.Printf("journal seq=%d: %v", e.Seq, err)
		}
	}
}

// Do hands cmd to the Run goroutine and waits for its result.
func (rt *Runtime) Do(ctx context.Context, cmd Command) (Result, error) {
	req := cmdReq{Cmd: cmd, Resp: make(chan cmdResp, 1)}
	select {
	case rt.cmds <- req:
	case <-rt.stop:
		return Result{}, ErrStopped
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	select {
	case resp := <-req.Resp:
		return resp.Res, resp.Err
	case <-rt.stop:
		return Result{}, ErrStopped
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
