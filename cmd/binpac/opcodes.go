package main

import (
	"fmt"
	"io"
	"os"

	"github.com/chazu/binpac/hilti"
)

// handleOpcodesCommand processes the `binpac opcodes` subcommand.
func handleOpcodesCommand(args []string) {
	var err error
	if len(args) == 0 {
		writeOpcodes(os.Stdout, hilti.DefaultRegistry)
	} else {
		err = writeOpcode(os.Stdout, hilti.DefaultRegistry, args[0])
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func writeOpcodes(w io.Writer, r *hilti.Registry) {
	for _, op := range r.Opcodes() {
		d, _ := r.Resolve(op)
		fmt.Fprintf(w, "%-20s %d  %s\n", op, d.Arity, d.Doc)
	}
}

func writeOpcode(w io.Writer, r *hilti.Registry, opcode string) error {
	d, err := r.Resolve(opcode)
	if err != nil {
		return err
	}
	target := "none"
	if d.Target != nil {
		target = "yes"
	}
	fmt.Fprintf(w, "%s\n  operands: %d\n  target:   %s\n\n  %s\n", d.Opcode, d.Arity, target, d.Doc)
	return nil
}
