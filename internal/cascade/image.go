package cascade

import (
	"sync/atomic"

	"github.com/chewxy/math32"
)

// Image holds the square depth and normal buffers of one frame.
//
// Depth is 0 for background. In 2-D a covered pixel has depth 1; in 3-D the
// depth of a pixel is the z index of its topmost filled voxel plus one.
// Normals are packed RGBA8 (see PackNormal); 0 means no normal.
//
// Depth writes from different regions may race on the same pixel in 3-D, so
// depth is always accessed atomically and only ever raised.
type Image struct {
	size    int
	depth   []uint32
	normals []uint32
}

// NewImage allocates buffers for a size×size image.
func NewImage(size int) *Image {
	return &Image{
		size:    size,
		depth:   make([]uint32, size*size),
		normals: make([]uint32, size*size),
	}
}

// Size returns the image edge length in pixels.
func (im *Image) Size() int {
	return im.size
}

// Clear zeroes both buffers.
func (im *Image) Clear() {
	clear(im.depth)
	clear(im.normals)
}

// Depth returns the depth of pixel (x, y); y grows downward.
func (im *Image) Depth(x, y int) uint32 {
	return atomic.LoadUint32(&im.depth[y*im.size+x])
}

// Raise sets the depth of (x, y) to d unless it already holds a larger value.
func (im *Image) Raise(x, y int, d uint32) {
	p := &im.depth[y*im.size+x]
	for {
		old := atomic.LoadUint32(p)
		if old >= d || atomic.CompareAndSwapUint32(p, old, d) {
			return
		}
	}
}

// Normal returns the packed normal of pixel (x, y).
func (im *Image) Normal(x, y int) uint32 {
	return im.normals[y*im.size+x]
}

// SetNormal stores a packed normal. Each pixel is written by one worker.
func (im *Image) SetNormal(x, y int, n uint32) {
	im.normals[y*im.size+x] = n
}

// Depths returns the depth buffer in row-major order. It must only be read
// after the frame has finished.
func (im *Image) Depths() []uint32 {
	return im.depth
}

// Normals returns the packed normal buffer in row-major order.
func (im *Image) Normals() []uint32 {
	return im.normals
}

// PackNormal encodes a unit vector as RGBA8 with each component mapped from
// [-1, 1] to [0, 255] and alpha 255. Red is the least significant byte.
func PackNormal(n [3]float32) uint32 {
	var packed uint32
	for i, c := range n {
		c = math32.Max(-1, math32.Min(1, c))
		packed |= uint32(math32.Round((c+1)/2*255)) << (8 * i)
	}
	return packed | 0xff<<24
}

// UnpackNormal decodes a value produced by PackNormal.
func UnpackNormal(p uint32) [3]float32 {
	var n [3]float32
	for i := range n {
		n[i] = float32((p>>(8*i))&0xff)/255*2 - 1
	}
	return n
}

// Normalize returns the unit vector along g. It reports false when g has no
// direction.
func Normalize(g [3]float32) ([3]float32, bool) {
	l := math32.Sqrt(g[0]*g[0] + g[1]*g[1] + g[2]*g[2])
	if l == 0 || math32.IsNaN(l) || math32.IsInf(l, 0) {
		return g, false
	}
	return [3]float32{g[0] / l, g[1] / l, g[2] / l}, true
}
