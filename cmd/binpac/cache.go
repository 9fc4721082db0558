package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chazu/binpac/cache"
	"github.com/chazu/binpac/hilti"
	"github.com/chazu/binpac/manifest"
)

// handleCacheCommand processes the `binpac cache` subcommand.
// Usage:
//
//	binpac cache list [module]   # list cached images
//	binpac cache show <hash>     # print an image
//	binpac cache rm <hash>       # remove an image
func handleCacheCommand(args []string, m *manifest.Manifest, verbose bool) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: binpac cache <list|show|rm> [args...]")
		os.Exit(1)
	}

	store, err := cache.Open(m.CachePath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening cache: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if verbose {
		fmt.Printf("Cache: %s\n", store.Path())
	}

	switch args[0] {
	case "list", "ls":
		module := ""
		if len(args) > 1 {
			module = args[1]
		}
		err = listImages(os.Stdout, store, module)
	case "show":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: binpac cache show <hash>")
			os.Exit(1)
		}
		err = showImage(os.Stdout, store, args[1])
	case "rm", "remove":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: binpac cache rm <hash>")
			os.Exit(1)
		}
		err = removeImage(store, args[1])
		if err == nil {
			fmt.Println("Removed.")
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown cache subcommand: %s\n", args[0])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		store.Close()
		os.Exit(1)
	}
}

func listImages(w io.Writer, store *cache.Store, module string) error {
	entries, err := store.List(module)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No cached images.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%x  %-20s %8d  %s\n", e.Hash[:8], e.Module, e.Size, e.Created.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func showImage(w io.Writer, store *cache.Store, prefix string) error {
	hash, err := store.Resolve(prefix)
	if err != nil {
		return err
	}
	img, err := store.Get(hash)
	if err != nil {
		return err
	}
	writeImage(w, img)
	return nil
}

func removeImage(store *cache.Store, prefix string) error {
	hash, err := store.Resolve(prefix)
	if err != nil {
		return err
	}
	return store.Delete(hash)
}

// writeImage prints an image in listing form. Operands are already in
// listing syntax.
func writeImage(w io.Writer, img *hilti.Image) {
	fmt.Fprintf(w, "module %s (image v%d)\n", img.Module, img.Version)
	for _, g := range img.Globals {
		if g.Init != "" {
			fmt.Fprintf(w, "global %s %s = %s\n", g.Type, g.Name, g.Init)
		} else {
			fmt.Fprintf(w, "global %s %s\n", g.Type, g.Name)
		}
	}
	for _, fn := range img.Functions {
		params := make([]string, len(fn.Params))
		for i, p := range fn.Params {
			params[i] = p.Type + " " + p.Name
		}
		fmt.Fprintln(w)
		if fn.Hook != "" {
			fmt.Fprintf(w, "hook %s &priority=%d\n", fn.Hook, fn.Priority)
		}
		fmt.Fprintf(w, "%s %s %s %s(%s) {\n", fn.Linkage, fn.CC, fn.Result, fn.Name, strings.Join(params, ", "))
		for _, l := range fn.Locals {
			fmt.Fprintf(w, "    local %s %s\n", l.Type, l.Name)
		}
		for i, ins := range fn.Body {
			line := ins.Opcode
			if len(ins.Operands) > 0 {
				line += " " + strings.Join(ins.Operands, " ")
			}
			if ins.Target != "" {
				line = ins.Target + " = " + line
			}
			fmt.Fprintf(w, "    %04d  %s\n", i, line)
		}
		fmt.Fprintln(w, "}")
	}
}
