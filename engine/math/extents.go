package math

// NewExtents3DEmpty returns an inverted box that any MakeFit call replaces.
func NewExtents3DEmpty() Extents3D {
	return Extents3D{
		Min: Vec3{K_INFINITY, K_INFINITY, K_INFINITY},
		Max: Vec3{-K_INFINITY, -K_INFINITY, -K_INFINITY},
	}
}

func NewExtents3D(min, max Vec3) Extents3D {
	return Extents3D{Min: min, Max: max}
}

// ExtentsFromVertices fits a box around every vertex position.
func ExtentsFromVertices(vertices []Vertex3D) Extents3D {
	e := NewExtents3DEmpty()
	for i := range vertices {
		e = e.MakeFitPoint(vertices[i].Position)
	}
	return e
}

func (e Extents3D) IsEmpty() bool {
	return e.Min.X > e.Max.X || e.Min.Y > e.Max.Y || e.Min.Z > e.Max.Z
}

// MakeFit returns the smallest box containing both e and other.
func (e Extents3D) MakeFit(other Extents3D) Extents3D {
	if other.IsEmpty() {
		return e
	}
	return Extents3D{Min: e.Min.Min(other.Min), Max: e.Max.Max(other.Max)}
}

// MakeFitPoint grows e to contain p.
func (e Extents3D) MakeFitPoint(p Vec3) Extents3D {
	return Extents3D{Min: e.Min.Min(p), Max: e.Max.Max(p)}
}

// Contains reports whether other lies entirely inside e.
func (e Extents3D) Contains(other Extents3D) bool {
	return e.Min.X <= other.Min.X && e.Min.Y <= other.Min.Y && e.Min.Z <= other.Min.Z &&
		e.Max.X >= other.Max.X && e.Max.Y >= other.Max.Y && e.Max.Z >= other.Max.Z
}

func (e Extents3D) Center() Vec3 {
	return e.Min.Add(e.Max).MulScalar(0.5)
}

func (e Extents3D) HalfExtents() Vec3 {
	return e.Max.Sub(e.Min).MulScalar(0.5)
}

func (e Extents3D) Corners() [8]Vec3 {
	return [8]Vec3{
		{e.Min.X, e.Min.Y, e.Min.Z},
		{e.Max.X, e.Min.Y, e.Min.Z},
		{e.Min.X, e.Max.Y, e.Min.Z},
		{e.Max.X, e.Max.Y, e.Min.Z},
		{e.Min.X, e.Min.Y, e.Max.Z},
		{e.Max.X, e.Min.Y, e.Max.Z},
		{e.Min.X, e.Max.Y, e.Max.Z},
		{e.Max.X, e.Max.Y, e.Max.Z},
	}
}

// Transform returns the axis-aligned box enclosing e after applying m.
func (e Extents3D) Transform(m Mat4) Extents3D {
	if e.IsEmpty() {
		return e
	}
	out := NewExtents3DEmpty()
	for _, c := range e.Corners() {
		out = out.MakeFitPoint(c.Transform(m))
	}
	return out
}
