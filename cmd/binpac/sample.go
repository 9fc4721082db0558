package main

import (
	"github.com/chazu/binpac/compiler"
	"github.com/chazu/binpac/hilti"
)

// SampleProgram builds a small SSH banner parser:
//
//	module Ssh;
//	type Version = uint8;
//	const greeting = "SSH-";
//	global int<64> banners = 0;
//	unit Banner {
//	  magic: bytes &length=4;
//	  version: Version;
//	  sep: skip &length=1;
//	  on version &priority=10 { print greeting, $$; }
//	  on version { local int<64> seen; seen = banners; print seen; }
//	}
func SampleProgram() *compiler.Program {
	p := compiler.NewProgram()
	p.Add(&compiler.ModuleDecl{Name: "Ssh"})
	p.Add(&compiler.TypeDecl{Name: "Version", Type: &compiler.UIntField{Width: 8}})
	p.Add(&compiler.ConstDecl{Name: "greeting", Value: "SSH-"})
	p.Add(&compiler.GlobalDecl{Name: "banners", Type: hilti.Int64, Init: &compiler.Constant{Value: 0}})

	u := p.NewUnit("Banner")
	u.AddField("magic", &compiler.BytesField{Length: 4})
	version := u.AddField("version", &compiler.NamedType{Name: "Version"})
	u.AddField("sep", &compiler.SkipField{Length: 1})

	u.AddHook(compiler.NewFieldHook(p.Scopes, version, 10,
		&compiler.Print{Args: []compiler.Expr{
			&compiler.Name{Name: "greeting"},
			&compiler.ResultValue{},
		}},
	))

	counter := compiler.NewFieldHook(p.Scopes, version, 0,
		&compiler.ExprStmt{Expr: &compiler.Assign{Target: "seen", Value: &compiler.Name{Name: "banners"}}},
		&compiler.Print{Args: []compiler.Expr{&compiler.Name{Name: "seen"}}},
	)
	counter.DeclareLocal(p.Scopes, "seen", hilti.Int64)
	u.AddHook(counter)

	p.Add(u)
	return p
}
