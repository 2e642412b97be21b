// Package compile runs the whole pipeline: parse and register every source
// concurrently, then resolve, tag, partition, constrain and order the merged
// Program.
package compile

import (
	"runtime"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/phobologic/asn1ir/internal/constraint"
	"github.com/phobologic/asn1ir/internal/diag"
	"github.com/phobologic/asn1ir/internal/extension"
	"github.com/phobologic/asn1ir/internal/graph"
	"github.com/phobologic/asn1ir/internal/model"
	"github.com/phobologic/asn1ir/internal/parse"
	"github.com/phobologic/asn1ir/internal/registry"
	"github.com/phobologic/asn1ir/internal/resolve"
	"github.com/phobologic/asn1ir/internal/tagging"
)

// Source is one schema text. Name is used in positions.
type Source struct {
	Name string
	Text []byte
}

// Options configures a compilation. The zero value is usable.
type Options struct {
	// Workers bounds the goroutines parsing sources; zero means
	// runtime.GOMAXPROCS(0).
	Workers int

	// ModuleOrder names modules that take precedence, in this order, when
	// the ordering of modules and types is otherwise free.
	ModuleOrder []string

	Logger hclog.Logger
}

// stage is one pass over the resolved Program.
type stage struct {
	name string
	run  func(*model.Program) error
}

var stages = []stage{
	{"tagging", tagging.AssignTags},
	{"extension", extension.Resolve},
	{"constraint", constraint.Resolve},
	{"graph", graph.Order},
}

// Compile turns sources into an ordered, annotated Program. Every error of
// the first failing stage is returned together and later stages do not run;
// the Program is nil in that case.
func Compile(sources []Source, opts Options) (*model.Program, error) {
	log := opts.Logger
	if log == nil {
		log = hclog.NewNullLogger()
	}

	regs, err := Register(sources, opts.Workers)
	if err != nil {
		log.Debug("registration failed", "errors", len(diag.Errors(err)))
		return nil, err
	}
	log.Debug("registered sources", "sources", len(sources), "modules", len(regs))

	p, err := resolve.Resolve(regs, resolve.Options{ModuleOrder: opts.ModuleOrder, Logger: log.Named("resolve")})
	if err != nil {
		log.Debug("resolution failed", "errors", len(diag.Errors(err)))
		return nil, err
	}
	for _, s := range stages {
		if err := s.run(p); err != nil {
			log.Debug("stage failed", "stage", s.name, "errors", len(diag.Errors(err)))
			return nil, err
		}
		log.Debug("stage done", "stage", s.name)
	}
	log.Debug("compiled", "types", len(p.Types)-model.NumBuiltins, "order", len(p.Order))
	return p, nil
}

// Register parses and registers sources on up to workers goroutines. The
// registries come back in source order, and within a source in module
// order. Errors of all sources are returned together.
func Register(sources []Source, workers int) ([]*registry.Registry, error) {
	type result struct {
		regs []*registry.Registry
		err  error
	}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, len(sources))

	work := make(chan int, len(sources))
	results := make([]result, len(sources))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				regs, err := registerSource(sources[idx])
				results[idx] = result{regs: regs, err: err}
			}
		}()
	}
	for i := range sources {
		work <- i
	}
	close(work)
	wg.Wait()

	var (
		errs diag.Collector
		out  []*registry.Registry
	)
	for _, r := range results {
		errs.Add(r.err)
		out = append(out, r.regs...)
	}
	return out, errs.Err()
}

func registerSource(src Source) ([]*registry.Registry, error) {
	f, err := parse.File(src.Name, src.Text)
	if err != nil {
		return nil, err
	}
	var (
		errs diag.Collector
		regs []*registry.Registry
	)
	for _, m := range f.Modules {
		reg, err := registry.Register(m, src.Name)
		errs.Add(err)
		regs = append(regs, reg)
	}
	return regs, errs.Err()
}
