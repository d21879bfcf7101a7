package geometry

import "gonum.org/v1/gonum/spatial/r2"

// Polygon is a closed path in screen space. The last vertex connects back
// to the first.
type Polygon []r2.Vec

// Rectangle returns the axis-aligned box spanned by two corners as a
// closed path, starting at origin.
func Rectangle(origin, corner r2.Vec) Polygon {
	return Polygon{
		origin,
		{X: corner.X, Y: origin.Y},
		corner,
		{X: origin.X, Y: corner.Y},
	}
}

// Contains reports whether p lies inside the polygon using the even-odd
// rule. Paths with fewer than three vertices enclose nothing.
func (poly Polygon) Contains(p r2.Vec) bool {
	n := len(poly)
	if n < 3 {
		return false
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y) + a.X
			if p.X < x {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// Area returns the absolute area enclosed by the polygon.
func (poly Polygon) Area() float64 {
	if len(poly) < 3 {
		return 0
	}
	var sum float64
	j := len(poly) - 1
	for i := range poly {
		sum += r2.Cross(poly[j], poly[i])
		j = i
	}
	if sum < 0 {
		sum = -sum
	}
	return sum / 2
}
