package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync"
	"sync/atomic"

	"github.com/edb-dev/mdmovie/internal/traj"
)

func init() {
	Register("raytrace", newRayView)
}

type vec3 struct{ X, Y, Z float64 }

func (v vec3) add(o vec3) vec3     { return vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v vec3) sub(o vec3) vec3     { return vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v vec3) mul(s float64) vec3  { return vec3{v.X * s, v.Y * s, v.Z * s} }
func (v vec3) dot(o vec3) float64  { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v vec3) length() float64     { return math.Sqrt(v.dot(v)) }

func (v vec3) norm() vec3 {
	l := v.length()
	if l == 0 {
		return v
	}
	return v.mul(1 / l)
}

type sphere struct {
	center vec3
	radius float64
	color  color.RGBA
}

type cylinder struct {
	p1, p2 vec3
	radius float64
	color  color.RGBA
}

// rayView renders ball-and-stick scenes on the CPU. One render request runs
// on its own goroutine, so Ready polling observes real asynchrony.
type rayView struct {
	id     int
	traj   *traj.Trajectory
	scene  *scene
	opts   Options
	frame  int
	closed atomic.Bool

	// camera framing fixed at creation from frame 0, like an initial
	// center-and-zoom on the first displayed frame
	center vec3
	scale  float64
}

type rayJob struct {
	done    atomic.Bool
	payload []byte
	err     error
}

func newRayView(id int, t *traj.Trajectory, opts Options) (View, error) {
	if t.Frames() == 0 {
		return nil, fmt.Errorf("view %d: trajectory has no frames", id)
	}
	sc, err := buildScene(t, opts)
	if err != nil {
		return nil, fmt.Errorf("view %d: %w", id, err)
	}
	v := &rayView{id: id, traj: t, scene: sc, opts: opts}
	v.frameCamera()
	return v, nil
}

// frameCamera centers the view on frame 0 and scales the scene into the
// unit sphere in front of the camera.
func (v *rayView) frameCamera() {
	f := v.traj.Frame(0)
	if len(v.scene.Atoms) == 0 {
		v.scale = 1
		return
	}
	var min, max vec3
	for n, sa := range v.scene.Atoms {
		p := vec3{f.At(sa.Index, 0), f.At(sa.Index, 1), f.At(sa.Index, 2)}
		if n == 0 {
			min, max = p, p
			continue
		}
		min.X = math.Min(min.X, p.X)
		min.Y = math.Min(min.Y, p.Y)
		min.Z = math.Min(min.Z, p.Z)
		max.X = math.Max(max.X, p.X)
		max.Y = math.Max(max.Y, p.Y)
		max.Z = math.Max(max.Z, p.Z)
	}
	v.center = min.add(max).mul(0.5)
	maxDist := 0.0
	for _, sa := range v.scene.Atoms {
		p := vec3{f.At(sa.Index, 0), f.At(sa.Index, 1), f.At(sa.Index, 2)}
		if d := p.sub(v.center).length(); d > maxDist {
			maxDist = d
		}
	}
	v.scale = 1
	if maxDist > 0 {
		v.scale = 1 / maxDist
	}
}

func (v *rayView) ID() int { return v.id }

func (v *rayView) SetFrame(index int) { v.frame = index }

func (v *rayView) RequestRender(p Params) (Handle, error) {
	if v.closed.Load() {
		return nil, fmt.Errorf("view %d: closed", v.id)
	}
	if v.frame < 0 || v.frame >= v.traj.Frames() {
		return nil, fmt.Errorf("view %d: frame %d out of range [0,%d)", v.id, v.frame, v.traj.Frames())
	}
	if p.Factor < 1 {
		p.Factor = 1
	}
	job := &rayJob{}
	frame := v.frame
	go func() {
		img := v.renderFrame(frame, p)
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			job.err = fmt.Errorf("encode frame %d: %w", frame, err)
		} else {
			enc := make([]byte, base64.StdEncoding.EncodedLen(buf.Len()))
			base64.StdEncoding.Encode(enc, buf.Bytes())
			job.payload = enc
		}
		job.done.Store(true)
	}()
	return job, nil
}

func (v *rayView) Ready(h Handle) bool {
	job, ok := h.(*rayJob)
	return ok && job.done.Load()
}

func (v *rayView) Payload(h Handle) ([]byte, error) {
	job, ok := h.(*rayJob)
	if !ok {
		return nil, fmt.Errorf("view %d: foreign render handle", v.id)
	}
	if !job.done.Load() {
		return nil, fmt.Errorf("view %d: render not finished", v.id)
	}
	return job.payload, job.err
}

func (v *rayView) Close() error {
	v.closed.Store(true)
	return nil
}

const (
	fov         = math.Pi / 3
	zOffset     = 3.0
	ambient     = 0.4
	diffuseK    = 1.0
	specularK   = 0.7
	shininess   = 32.0
	minBondFrac = 0.3
)

var lightDir = vec3{-1, 1, 1}.norm()

// renderFrame builds the frame's scene geometry and raytraces it, one
// goroutine per scanline.
func (v *rayView) renderFrame(frame int, p Params) *image.RGBA {
	f := v.traj.Frame(frame)
	spheres := make([]sphere, len(v.scene.Atoms))
	for i, sa := range v.scene.Atoms {
		pos := vec3{f.At(sa.Index, 0), f.At(sa.Index, 1), f.At(sa.Index, 2)}
		pos = pos.sub(v.center).mul(v.scale).add(vec3{0, 0, zOffset})
		spheres[i] = sphere{pos, sa.Radius * v.scale, sa.Color}
	}
	cylinders := make([]cylinder, 0, len(v.scene.Bonds))
	for _, b := range v.scene.Bonds {
		s1, s2 := spheres[b[0]], spheres[b[1]]
		axis := s2.center.sub(s1.center)
		if axis.length() == 0 {
			continue
		}
		dir := axis.norm()
		cylinders = append(cylinders, cylinder{
			p1:     s1.center.add(dir.mul(s1.radius)),
			p2:     s2.center.sub(dir.mul(s2.radius)),
			radius: minBondFrac * math.Min(s1.radius, s2.radius),
			color:  color.RGBA{150, 150, 150, 255},
		})
	}

	width, height := v.opts.Width*p.Factor, v.opts.Height*p.Factor
	bg := color.RGBA{255, 255, 255, 255}
	if p.Transparent {
		bg = color.RGBA{}
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	aspect := float64(width) / float64(height)
	halfH := math.Tan(fov / 2)
	halfW := aspect * halfH

	var wg sync.WaitGroup
	for j := 0; j < height; j++ {
		wg.Add(1)
		go func(j int) {
			defer wg.Done()
			for i := 0; i < width; i++ {
				u := (float64(i) + 0.5) / float64(width)
				w := (float64(j) + 0.5) / float64(height)
				dir := vec3{(2*u - 1) * halfW, (1 - 2*w) * halfH, 1}.norm()
				img.SetRGBA(i, j, castRay(dir, spheres, cylinders, bg))
			}
		}(j)
	}
	wg.Wait()
	return img
}

// castRay shoots a primary ray from the origin and Phong-shades the nearest
// hit, with a single shadow ray toward the light.
func castRay(dir vec3, spheres []sphere, cylinders []cylinder, bg color.RGBA) color.RGBA {
	origin := vec3{}
	closest := math.Inf(1)
	hit := false
	var hitColor color.RGBA
	var normal vec3

	for _, s := range spheres {
		if t, ok := hitSphere(origin, dir, s); ok && t < closest {
			closest, hit, hitColor = t, true, s.color
			normal = origin.add(dir.mul(t)).sub(s.center).norm()
		}
	}
	for _, c := range cylinders {
		if t, n, ok := hitCylinder(origin, dir, c); ok && t < closest {
			closest, hit, hitColor, normal = t, true, c.color, n
		}
	}
	if !hit {
		return bg
	}

	point := origin.add(dir.mul(closest))
	shadowFrom := point.add(normal.mul(1e-4))
	shadowed := false
	for _, s := range spheres {
		if t, ok := hitSphere(shadowFrom, lightDir, s); ok && t > 1e-4 {
			shadowed = true
			break
		}
	}
	if !shadowed {
		for _, c := range cylinders {
			if t, _, ok := hitCylinder(shadowFrom, lightDir, c); ok && t > 1e-4 {
				shadowed = true
				break
			}
		}
	}

	var diffuse, specular float64
	if !shadowed {
		diffuse = diffuseK * math.Max(normal.dot(lightDir), 0)
		view := origin.sub(point).norm()
		refl := lightDir.mul(-1).sub(normal.mul(2 * lightDir.mul(-1).dot(normal)))
		specular = specularK * math.Pow(math.Max(view.dot(refl), 0), shininess)
	}
	intensity := ambient + diffuse
	return color.RGBA{
		clamp8(float64(hitColor.R)*intensity + 255*specular),
		clamp8(float64(hitColor.G)*intensity + 255*specular),
		clamp8(float64(hitColor.B)*intensity + 255*specular),
		255,
	}
}

func clamp8(v float64) uint8 {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return uint8(v)
}

func hitSphere(origin, dir vec3, s sphere) (float64, bool) {
	oc := origin.sub(s.center)
	a := dir.dot(dir)
	b := 2 * oc.dot(dir)
	c := oc.dot(oc) - s.radius*s.radius
	disc := b*b - 4*a*c
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	const eps = 1e-4
	if t := (-b - sq) / (2 * a); t > eps {
		return t, true
	}
	if t := (-b + sq) / (2 * a); t > eps {
		return t, true
	}
	return 0, false
}

// hitCylinder intersects a finite capped cylinder, returning the nearest
// positive t and the surface normal there.
func hitCylinder(origin, dir vec3, c cylinder) (float64, vec3, bool) {
	axis := c.p2.sub(c.p1)
	length := axis.length()
	if length == 0 {
		return 0, vec3{}, false
	}
	an := axis.mul(1 / length)
	dp := origin.sub(c.p1)

	const eps = 1e-4
	best := math.Inf(1)
	var bestN vec3
	found := false

	// lateral surface
	dPerp := dir.sub(an.mul(dir.dot(an)))
	dpPerp := dp.sub(an.mul(dp.dot(an)))
	a := dPerp.dot(dPerp)
	if math.Abs(a) > eps {
		b := 2 * dPerp.dot(dpPerp)
		cc := dpPerp.dot(dpPerp) - c.radius*c.radius
		if disc := b*b - 4*a*cc; disc >= 0 {
			sq := math.Sqrt(disc)
			for _, t := range [2]float64{(-b - sq) / (2 * a), (-b + sq) / (2 * a)} {
				if t <= eps || t >= best {
					continue
				}
				point := origin.add(dir.mul(t))
				proj := point.sub(c.p1).dot(an)
				if proj >= 0 && proj <= length {
					best, found = t, true
					bestN = point.sub(c.p1.add(an.mul(proj))).norm()
				}
			}
		}
	}

	// end caps
	for _, end := range [2]struct {
		center vec3
		normal vec3
	}{{c.p1, an.mul(-1)}, {c.p2, an}} {
		denom := dir.dot(end.normal)
		if math.Abs(denom) < eps {
			continue
		}
		t := end.center.sub(origin).dot(end.normal) / denom
		if t <= eps || t >= best {
			continue
		}
		point := origin.add(dir.mul(t))
		if point.sub(end.center).length() <= c.radius {
			best, found, bestN = t, true, end.normal
		}
	}

	if !found {
		return 0, vec3{}, false
	}
	return best, bestN, true
}
