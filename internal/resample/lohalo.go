package resample

// Lohalo implements spec.md §4.7's Lohalo sampler: sigmoidized
// Mitchell-Netravali blended with a clamped EWA-Robidoux correction.
type Lohalo struct{}

func NewLohalo() *Lohalo { return &Lohalo{} }

func (*Lohalo) Name() string            { return "LOHALO" }
func (*Lohalo) ContextRect() (int, int) { return 27, 27 }

func (*Lohalo) Get(src Source, x, y float64, scale *ScaleMatrix) [4]float64 {
	if boxed, ok := tryBoxGet(src, x, y, scale); ok {
		return boxed
	}
	return ewaBlend(src, x, y, scale, robidouxKernel)
}
