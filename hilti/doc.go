// Package hilti defines the intermediate instruction set that BinPAC
// programs are lowered to.
//
// The package consists of several components:
//
//   - Types and operands: immutable type descriptors (with the TypeInfo
//     the runtime needs) and the operand forms instructions accept.
//
//   - Registry: instructions are declared, not hard-coded. A Definition
//     names an opcode, one legality predicate (Constraint) per operand,
//     a predicate for the target, and a codegen callback. Registries are
//     built once at startup and sealed; DefaultRegistry carries the
//     standard set.
//
//   - Builder: emits instructions into the functions of a Module. Every
//     emitted instruction is checked against its definition before its
//     codegen callback runs, so callbacks can rely on well-typed operands.
//
//   - Image: a CBOR-encodable snapshot of a lowered module, used for
//     caching and shipping compiled modules.
//
// # Errors
//
// A failed constraint is a user error and comes back as *ConstraintError.
// A violated compiler invariant, such as asking for the address of a
// function whose calling convention has none, is raised as a panic carrying
// *InternalError. Only the outermost compile entry point recovers it, via
// RecoverInternal, and the compilation is aborted.
package hilti
