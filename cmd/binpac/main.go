// binpac CLI - compiles parser programs and manages the image cache
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/chazu/binpac/compiler"
	"github.com/chazu/binpac/manifest"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	listing := flag.Bool("l", false, "Print the instruction listing")
	render := flag.Bool("r", false, "Print the program in source form")
	failFast := flag.Bool("fail-fast", false, "Stop at the first lowering error")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: binpac [options] <command> [args...]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nCommands:\n")
		fmt.Fprintf(os.Stderr, "  sample                 # Compile the built-in sample parser\n")
		fmt.Fprintf(os.Stderr, "  opcodes [opcode]       # List registered instructions\n")
		fmt.Fprintf(os.Stderr, "  deps                   # Show the resolved dependencies\n")
		fmt.Fprintf(os.Stderr, "  cache list [module]    # List cached images\n")
		fmt.Fprintf(os.Stderr, "  cache show <hash>      # Show a cached image\n")
		fmt.Fprintf(os.Stderr, "  cache rm <hash>        # Remove a cached image\n")
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	switch args[0] {
	case "opcodes":
		handleOpcodesCommand(args[1:])
		return
	}

	m := loadManifest()

	switch args[0] {
	case "sample":
		handleSampleCommand(m, sampleFlags{
			verbose:  *verbose,
			listing:  *listing,
			render:   *render,
			failFast: *failFast,
		})
	case "deps":
		handleDepsCommand(m)
	case "cache":
		handleCacheCommand(args[1:], m, *verbose)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
		flag.Usage()
		os.Exit(1)
	}
}

// loadManifest finds binpac.toml from the working directory. Without one
// the defaults apply to a project rooted here.
func loadManifest() *manifest.Manifest {
	m, err := manifest.FindAndLoad(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading manifest: %v\n", err)
		os.Exit(1)
	}
	if m == nil {
		m, err = manifest.Parse([]byte("[project]\nname = \"binpac\"\n"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		m.Dir, _ = os.Getwd()
	}
	return m
}

// handleDepsCommand processes the `binpac deps` subcommand.
func handleDepsCommand(m *manifest.Manifest) {
	deps, err := manifest.NewResolver(m).Resolve()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(deps) == 0 {
		fmt.Println("No dependencies.")
		return
	}
	for _, d := range deps {
		fmt.Printf("%-20s %-20s %s\n", d.Name, d.Module, d.Dir)
	}
}

type sampleFlags struct {
	verbose  bool
	listing  bool
	render   bool
	failFast bool
}

// handleSampleCommand processes the `binpac sample` subcommand.
func handleSampleCommand(m *manifest.Manifest, f sampleFlags) {
	opts, err := compiler.OptionsFromManifest(m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if opts.Cache != nil {
		defer opts.Cache.Close()
	}
	opts.Listing = opts.Listing || f.listing
	opts.FailFast = opts.FailFast || f.failFast
	opts.Reporter = compiler.NewReporter(os.Stderr, "sample.pac")

	prog := SampleProgram()
	if f.render {
		p := compiler.NewPrinter()
		compiler.Render(p, prog)
		fmt.Print(p.String())
	}

	res, err := compiler.Compile(prog, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if opts.Cache != nil {
			opts.Cache.Close()
		}
		os.Exit(1)
	}

	if res.Listing != "" {
		fmt.Print(res.Listing)
	}
	if f.verbose {
		state := "new"
		switch {
		case res.Reused:
			state = "reused"
		case res.Cached:
			state = "already cached"
		}
		fmt.Printf("Module %s: image %x (%s)\n", res.Image.Module, res.Hash[:8], state)
	}
}
