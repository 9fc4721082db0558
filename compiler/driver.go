package compiler

import (
	"errors"
	"fmt"

	"github.com/chazu/binpac/cache"
	"github.com/chazu/binpac/hilti"
	"github.com/chazu/binpac/manifest"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("binpac.compiler")

var (
	// ErrSemantic is returned when the checker reports errors.
	ErrSemantic = errors.New("semantic errors")
	// ErrLowering is returned when statements failed to lower.
	ErrLowering = errors.New("lowering errors")
)

// Options configures Compile.
type Options struct {
	Registry *hilti.Registry // nil means hilti.DefaultRegistry
	FailFast bool
	Listing  bool
	Cache    *cache.Store // optional
	Reporter *Reporter    // optional; receives every diagnostic
	Imports  []string     // modules provided by dependencies
}

// Result is the outcome of Compile.
type Result struct {
	Module      *hilti.Module
	Image       *hilti.Image
	Hash        [32]byte
	Fingerprint [32]byte // of the checked program
	Listing     string
	Diagnostics []Diagnostic
	Cached      bool // an equal image was already in the cache
	Reused      bool // the image came from the cache; nothing was lowered
}

// Compile resolves, checks and lowers prog. On semantic errors no lowering
// happens. With a cache and the default registry, a program whose
// fingerprint was compiled before is not lowered again unless a listing is
// requested. A violated compiler invariant is returned as a
// *hilti.InternalError.
func Compile(prog *Program, opts Options) (res *Result, err error) {
	defer hilti.RecoverInternal(&err)

	res = &Result{}
	defer func() {
		if opts.Reporter != nil {
			opts.Reporter.ReportAll(res.Diagnostics)
		}
	}()

	name := prog.ModuleName()
	for _, imp := range opts.Imports {
		if imp == name {
			return res, fmt.Errorf("module %s is also provided by a dependency", name)
		}
	}

	if n := ResolveTypes(prog); n > 0 {
		log.Debugf("%s: %d fields with unresolved types", name, n)
	}

	c := NewChecker()
	errs := c.CheckAST(prog)
	res.Diagnostics = append(res.Diagnostics, c.Diagnostics()...)
	if errs > 0 {
		log.Infof("%s: %d semantic errors", name, errs)
		return res, fmt.Errorf("%w: %d", ErrSemantic, errs)
	}

	res.Fingerprint = Fingerprint(prog)
	if opts.Cache != nil && opts.Registry == nil && !opts.Listing {
		img, hash, err := opts.Cache.Lookup(res.Fingerprint)
		switch {
		case err == nil:
			log.Infof("%s unchanged, reusing image %x", name, hash[:6])
			res.Image, res.Hash, res.Cached, res.Reused = img, hash, true, true
			return res, nil
		case !errors.Is(err, cache.ErrNotFound):
			log.Errorf("cache lookup for %s: %s", name, err)
		}
	}

	mod, diags, err := Lower(prog, opts.Registry, opts.FailFast)
	res.Module = mod
	res.Diagnostics = append(res.Diagnostics, diags...)
	if err != nil {
		return res, err
	}
	if len(diags) > 0 {
		return res, fmt.Errorf("%w: %d", ErrLowering, len(diags))
	}

	res.Image = hilti.NewImage(mod)
	if opts.Cache != nil {
		res.Hash, res.Cached, err = opts.Cache.Put(res.Image)
		if err == nil {
			err = opts.Cache.Link(res.Fingerprint, res.Hash)
		}
	} else {
		res.Hash, err = res.Image.Hash()
	}
	if err != nil {
		return res, err
	}
	if opts.Listing {
		res.Listing = mod.Disassemble()
	}

	log.Infof("compiled %s: %d functions, image %x", name, len(mod.Functions), res.Hash[:6])
	return res, nil
}

// OptionsFromManifest builds compile options from a project manifest:
// logging verbosity, the image cache and the modules of its dependencies.
// The caller closes Options.Cache when set.
func OptionsFromManifest(m *manifest.Manifest) (Options, error) {
	commonlog.Configure(m.Compiler.Verbosity, nil)

	opts := Options{
		FailFast: m.Compiler.FailFast,
		Listing:  m.Compiler.Listing,
	}

	deps, err := manifest.NewResolver(m).Resolve()
	if err != nil {
		return opts, err
	}
	for _, d := range deps {
		log.Debugf("dependency %s provides %s (%s)", d.Name, d.Module, d.Dir)
		opts.Imports = append(opts.Imports, d.Module)
	}

	if m.Cache.Enabled {
		opts.Cache, err = cache.Open(m.CachePath())
		if err != nil {
			return opts, err
		}
	}
	return opts, nil
}
