package hilti

// ImageVersion is the current image format version. Increment when
// making incompatible changes to the format.
const ImageVersion uint16 = 1

// Image is the serializable form of a lowered module. Operands are stored
// in their listing syntax; an image is for shipping and caching, not for
// further lowering.
type Image struct {
	Version   uint16          `cbor:"1,keyasint"`
	Module    string          `cbor:"2,keyasint"`
	Functions []ImageFunction `cbor:"3,keyasint"`
	Globals   []ImageGlobal   `cbor:"4,keyasint,omitempty"`
}

// ImageGlobal is one module-level variable of an Image.
type ImageGlobal struct {
	Name string `cbor:"1,keyasint"`
	Type string `cbor:"2,keyasint"`
	Init string `cbor:"3,keyasint,omitempty"`
}

// ImageFunction is one function of an Image.
type ImageFunction struct {
	Name     string             `cbor:"1,keyasint"`
	CC       CallingConvention  `cbor:"2,keyasint"`
	Linkage  Linkage            `cbor:"3,keyasint"`
	Params   []ImageVar         `cbor:"4,keyasint,omitempty"`
	Result   string             `cbor:"5,keyasint"`
	Locals   []ImageVar         `cbor:"6,keyasint,omitempty"`
	Body     []ImageInstruction `cbor:"7,keyasint"`
	Hook     string             `cbor:"8,keyasint,omitempty"`
	Priority int                `cbor:"9,keyasint,omitempty"`
}

// ImageVar is a parameter or local of an ImageFunction.
type ImageVar struct {
	Name string `cbor:"1,keyasint"`
	Type string `cbor:"2,keyasint"`
}

// ImageInstruction is one instruction of an ImageFunction.
type ImageInstruction struct {
	Opcode   string   `cbor:"1,keyasint"`
	Target   string   `cbor:"2,keyasint,omitempty"`
	Operands []string `cbor:"3,keyasint,omitempty"`
	Value    string   `cbor:"4,keyasint,omitempty"`
}

// NewImage captures the current state of m.
func NewImage(m *Module) *Image {
	img := &Image{Version: ImageVersion, Module: m.Name}
	for _, g := range m.Globals {
		ig := ImageGlobal{Name: g.Name, Type: g.Type.String()}
		if g.Init != nil {
			ig.Init = g.Init.String()
		}
		img.Globals = append(img.Globals, ig)
	}
	for _, f := range m.Functions {
		img.Functions = append(img.Functions, imageFunction(f))
	}
	return img
}

func imageFunction(f *Function) ImageFunction {
	fn := ImageFunction{
		Name:     f.Name,
		CC:       f.CC,
		Linkage:  f.Linkage,
		Result:   f.Result.String(),
		Hook:     f.Hook,
		Priority: f.Priority,
		Body:     make([]ImageInstruction, 0, len(f.Body)),
	}
	for _, p := range f.Params {
		fn.Params = append(fn.Params, ImageVar{Name: p.Name, Type: p.Type.String()})
	}
	for _, l := range f.Locals {
		fn.Locals = append(fn.Locals, ImageVar{Name: l.Name, Type: l.Type.String()})
	}
	for _, ins := range f.Body {
		ii := ImageInstruction{Opcode: ins.Opcode}
		if ins.Target != nil {
			ii.Target = ins.Target.String()
		}
		for _, op := range ins.Operands {
			ii.Operands = append(ii.Operands, op.String())
		}
		if ins.Value != nil {
			ii.Value = ins.Value.String()
		}
		fn.Body = append(fn.Body, ii)
	}
	return fn
}
