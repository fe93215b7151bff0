package sdf

import (
	"math"
	"math/rand"
)

// Perlin is an improved Perlin gradient noise over a seeded permutation lattice
type Perlin struct {
	perm [512]int
}

// NewPerlin builds the permutation table for the given seed
func NewPerlin(seed int64) *Perlin {
	p := &Perlin{}
	table := rand.New(rand.NewSource(seed)).Perm(256)
	for i := 0; i < 512; i++ {
		p.perm[i] = table[i&255]
	}
	return p
}

// Noise returns coherent noise in roughly [-1, 1]. It is zero at every lattice point.
func (p *Perlin) Noise(x, y, z float64) float64 {
	fx, fy, fz := math.Floor(x), math.Floor(y), math.Floor(z)
	ix, iy, iz := int(fx)&255, int(fy)&255, int(fz)&255
	dx, dy, dz := x-fx, y-fy, z-fz

	w000 := p.grad(ix, iy, iz, dx, dy, dz)
	w100 := p.grad(ix+1, iy, iz, dx-1, dy, dz)
	w010 := p.grad(ix, iy+1, iz, dx, dy-1, dz)
	w110 := p.grad(ix+1, iy+1, iz, dx-1, dy-1, dz)
	w001 := p.grad(ix, iy, iz+1, dx, dy, dz-1)
	w101 := p.grad(ix+1, iy, iz+1, dx-1, dy, dz-1)
	w011 := p.grad(ix, iy+1, iz+1, dx, dy-1, dz-1)
	w111 := p.grad(ix+1, iy+1, iz+1, dx-1, dy-1, dz-1)

	wx, wy, wz := fade(dx), fade(dy), fade(dz)
	x00 := lerp(wx, w000, w100)
	x10 := lerp(wx, w010, w110)
	x01 := lerp(wx, w001, w101)
	x11 := lerp(wx, w011, w111)
	y0 := lerp(wy, x00, x10)
	y1 := lerp(wy, x01, x11)
	return lerp(wz, y0, y1)
}

func (p *Perlin) grad(x, y, z int, dx, dy, dz float64) float64 {
	h := p.perm[p.perm[p.perm[x]+y]+z] & 15

	u := dy
	if h < 8 || h == 12 || h == 13 {
		u = dx
	}
	v := dz
	if h < 4 || h == 12 || h == 13 {
		v = dy
	}

	if h&1 != 0 {
		u = -u
	}
	if h&2 != 0 {
		v = -v
	}
	return u + v
}

// fade is the quintic 6t^5 - 15t^4 + 10t^3 interpolant
func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(t, a, b float64) float64 {
	return (1-t)*a + t*b
}
