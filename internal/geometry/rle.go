package geometry

import "strings"

// RLE is a run-length encoded binary mask in the COCO convention: runs are
// taken in column-major order and the first run counts background pixels.
type RLE struct {
	Height, Width int
	Counts        []int
	// Compressed records whether the source used the string form, so that
	// re-encoding preserves it.
	Compressed bool
}

// EncodeMask run-length encodes m.
func EncodeMask(m *Mask) *RLE {
	r := &RLE{Height: m.Height, Width: m.Width, Compressed: true}
	var prev uint8
	run := 0
	for x := 0; x < m.Width; x++ {
		for y := 0; y < m.Height; y++ {
			v := m.Pix[y*m.Width+x]
			if v != prev {
				r.Counts = append(r.Counts, run)
				run = 0
				prev = v
			}
			run++
		}
	}
	r.Counts = append(r.Counts, run)
	return r
}

// Decode expands the runs into a mask.
func (r *RLE) Decode() (*Mask, error) {
	total := 0
	for _, c := range r.Counts {
		if c < 0 {
			return nil, shapeErrorf("negative RLE run %d", c)
		}
		total += c
	}
	if total != r.Height*r.Width {
		return nil, shapeErrorf("RLE runs cover %d pixels, mask has %d", total, r.Height*r.Width)
	}
	m := NewMask(r.Width, r.Height)
	pos := 0
	for i, c := range r.Counts {
		if i%2 == 1 {
			for j := pos; j < pos+c; j++ {
				x, y := j/r.Height, j%r.Height
				m.Pix[y*r.Width+x] = 1
			}
		}
		pos += c
	}
	return m, nil
}

// Area returns the number of foreground pixels without decoding.
func (r *RLE) Area() int {
	n := 0
	for i := 1; i < len(r.Counts); i += 2 {
		n += r.Counts[i]
	}
	return n
}

// BoundingBox decodes the mask and returns its tight box.
func (r *RLE) BoundingBox() (Box, error) {
	m, err := r.Decode()
	if err != nil {
		return Box{}, err
	}
	b, _ := m.BoundingBox()
	return b, nil
}

// MergeRLE combines masks of equal size by union, or by intersection when
// intersect is set.
func MergeRLE(rles []*RLE, intersect bool) (*RLE, error) {
	if len(rles) == 0 {
		return nil, shapeErrorf("nothing to merge")
	}
	acc, err := rles[0].Decode()
	if err != nil {
		return nil, err
	}
	for _, r := range rles[1:] {
		m, err := r.Decode()
		if err != nil {
			return nil, err
		}
		if intersect {
			err = acc.And(m)
		} else {
			err = acc.Or(m)
		}
		if err != nil {
			return nil, err
		}
	}
	return EncodeMask(acc), nil
}

// String returns the compressed counts string used by COCO tooling.
func (r *RLE) String() string {
	return encodeCounts(r.Counts)
}

// ParseRLEString decodes a compressed counts string.
func ParseRLEString(s string, height, width int) (*RLE, error) {
	counts, err := decodeCounts(s)
	if err != nil {
		return nil, err
	}
	return &RLE{Height: height, Width: width, Counts: counts, Compressed: true}, nil
}

// encodeCounts packs runs into 6-bit characters offset by '0'. From the
// fourth run on, each value is stored as the delta to the run two back.
func encodeCounts(counts []int) string {
	var sb strings.Builder
	for i, c := range counts {
		x := c
		if i > 2 {
			x -= counts[i-2]
		}
		more := true
		for more {
			ch := x & 0x1f
			x >>= 5
			if ch&0x10 != 0 {
				more = x != -1
			} else {
				more = x != 0
			}
			if more {
				ch |= 0x20
			}
			sb.WriteByte(byte(ch + 48))
		}
	}
	return sb.String()
}

func decodeCounts(s string) ([]int, error) {
	var counts []int
	p := 0
	for p < len(s) {
		x, k := 0, 0
		more := true
		for more {
			if p >= len(s) {
				return nil, shapeErrorf("truncated RLE string")
			}
			c := int(s[p]) - 48
			if c < 0 || c > 63 {
				return nil, shapeErrorf("invalid RLE character %q", s[p])
			}
			x |= (c & 0x1f) << (5 * k)
			more = c&0x20 != 0
			p++
			k++
			if !more && c&0x10 != 0 {
				x |= -1 << (5 * k)
			}
		}
		if len(counts) > 2 {
			x += counts[len(counts)-2]
		}
		counts = append(counts, x)
	}
	return counts, nil
}
