package imaging

import (
	"image"
	"math"
	"runtime"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"golang.org/x/sync/errgroup"
)

// toRGBA flattens any decoded image onto an opaque white canvas anchored at (0,0).
func toRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}

func toGray(src image.Image) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// skew estimation works on a downsampled copy; full resolution adds nothing to the angle.
const skewSampleMax = 800

// estimateSkew returns the dominant text-line angle in degrees within ±maxDeg.
// Foreground pixels (dark) are projected onto rotated row bins; the angle whose
// profile has the highest energy is the one where text lines collapse into rows.
// Positive means lines descend left to right.
func estimateSkew(g *image.Gray, maxDeg float64) float64 {
	if maxDeg <= 0 {
		return 0
	}
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return 0
	}
	step := 1
	if m := max(w, h); m > skewSampleMax {
		step = (m + skewSampleMax - 1) / skewSampleMax
	}

	type pt struct{ x, y float64 }
	var pts []pt
	cx, cy := float64(w)/2, float64(h)/2
	for y := 0; y < h; y += step {
		row := g.Pix[y*g.Stride : y*g.Stride+w]
		for x := 0; x < w; x += step {
			if row[x] < 128 {
				pts = append(pts, pt{float64(x) - cx, float64(y) - cy})
			}
		}
	}
	// too little ink to say anything about orientation
	if len(pts) < 50 {
		return 0
	}

	diag := math.Hypot(float64(w), float64(h))
	nbins := int(diag/float64(step)) + 2
	bins := make([]float64, nbins)
	score := func(deg float64) float64 {
		rad := deg * math.Pi / 180
		sin, cos := math.Sincos(rad)
		clear(bins)
		for _, p := range pts {
			yr := p.y*cos - p.x*sin
			i := int((yr+diag/2)/float64(step) + 0.5)
			if i >= 0 && i < nbins {
				bins[i]++
			}
		}
		var e float64
		for _, v := range bins {
			e += v * v
		}
		return e
	}

	search := func(lo, hi, inc, best float64) float64 {
		bestScore := -1.0
		for a := lo; a <= hi+1e-9; a += inc {
			if s := score(a); s > bestScore {
				bestScore, best = s, a
			}
		}
		return best
	}
	coarse := search(-maxDeg, maxDeg, 1, 0)
	fine := search(math.Max(-maxDeg, coarse-1), math.Min(maxDeg, coarse+1), 0.1, coarse)
	return math.Round(fine*10) / 10
}

// rotate turns src by -deg around its centre, keeping the canvas size so every
// derived variant shares the original's dimensions. Uncovered corners are white.
func rotate(src *image.RGBA, deg float64) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, image.White, image.Point{}, draw.Src)

	rad := deg * math.Pi / 180
	sin, cos := math.Sincos(rad)
	cx, cy := float64(b.Dx())/2, float64(b.Dy())/2
	// source -> destination: d = R(-deg)(s - c) + c
	s2d := f64.Aff3{
		cos, sin, cx - cos*cx - sin*cy,
		-sin, cos, cy + sin*cx - cos*cy,
	}
	draw.BiLinear.Transform(dst, s2d, src, b, draw.Over, nil)
	return dst
}

// denoiseNLM applies non-local-means filtering to a grayscale image.
// strength is the filter parameter h (0 disables); searchRadius bounds the
// window compared against each pixel; patches are 3x3.
func denoiseNLM(src *image.Gray, strength float64, searchRadius int) *image.Gray {
	if strength <= 0 || searchRadius <= 0 {
		return src
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(b)
	const patch = 1
	h2 := strength * strength
	norm := float64((2*patch + 1) * (2*patch + 1))

	at := func(x, y int) float64 {
		x = min(max(x, 0), w-1)
		y = min(max(y, 0), h-1)
		return float64(src.Pix[y*src.Stride+x])
	}

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for y := 0; y < h; y++ {
		g.Go(func() error {
			for x := 0; x < w; x++ {
				var sum, wsum float64
				for dy := -searchRadius; dy <= searchRadius; dy++ {
					for dx := -searchRadius; dx <= searchRadius; dx++ {
						var d2 float64
						for py := -patch; py <= patch; py++ {
							for px := -patch; px <= patch; px++ {
								diff := at(x+px, y+py) - at(x+dx+px, y+dy+py)
								d2 += diff * diff
							}
						}
						wt := math.Exp(-(d2 / norm) / h2)
						sum += wt * at(x+dx, y+dy)
						wsum += wt
					}
				}
				dst.Pix[y*dst.Stride+x] = uint8(math.Round(sum / wsum))
			}
			return nil
		})
	}
	_ = g.Wait()
	return dst
}

// adaptiveThreshold binarizes with a local-mean threshold: a pixel is white
// when it is brighter than the mean of its block minus offset.
func adaptiveThreshold(src *image.Gray, block int, offset float64) *image.Gray {
	if block < 3 {
		block = 3
	}
	if block%2 == 0 {
		block++
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(b)

	// summed-area table with a zero row/column
	integral := make([]int64, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		var rowSum int64
		for x := 0; x < w; x++ {
			rowSum += int64(src.Pix[y*src.Stride+x])
			integral[(y+1)*(w+1)+x+1] = integral[y*(w+1)+x+1] + rowSum
		}
	}

	r := block / 2
	for y := 0; y < h; y++ {
		y0, y1 := max(y-r, 0), min(y+r+1, h)
		for x := 0; x < w; x++ {
			x0, x1 := max(x-r, 0), min(x+r+1, w)
			area := int64((x1 - x0) * (y1 - y0))
			sum := integral[y1*(w+1)+x1] - integral[y0*(w+1)+x1] - integral[y1*(w+1)+x0] + integral[y0*(w+1)+x0]
			mean := float64(sum) / float64(area)
			if float64(src.Pix[y*src.Stride+x]) > mean-offset {
				dst.Pix[y*dst.Stride+x] = 255
			}
		}
	}
	return dst
}

// rescaleFactor maps sourceDPI to targetDPI, shrunk so neither side exceeds maxDim.
func rescaleFactor(w, h, sourceDPI, targetDPI, maxDim int) float64 {
	if sourceDPI <= 0 || targetDPI <= 0 {
		return 1
	}
	f := float64(targetDPI) / float64(sourceDPI)
	if maxDim > 0 {
		if longest := float64(max(w, h)); longest*f > float64(maxDim) {
			f = float64(maxDim) / longest
		}
	}
	return f
}

// rescale resizes with Catmull-Rom; factors within 2% of 1 return src unchanged.
func rescale(src *image.Gray, factor float64) *image.Gray {
	if math.Abs(factor-1) < 0.02 {
		return src
	}
	b := src.Bounds()
	w := max(int(math.Round(float64(b.Dx())*factor)), 1)
	h := max(int(math.Round(float64(b.Dy())*factor)), 1)
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
