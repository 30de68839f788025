package browser

import (
	"context"
	"math"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"typing-simulator/stealth"
)

// HumanMove moves the mouse to a random point inside the element along a
// curved, eased path.
func (b *Browser) HumanMove(ctx context.Context, element *rod.Element) error {
	box, err := element.Context(ctx).Shape()
	if err != nil {
		return err
	}

	// Stay within 80% of the element so the pointer lands on it
	rect := box.Box()
	targetX := rect.X + rect.Width/2 + (b.rng.Float64()-0.5)*rect.Width*0.8
	targetY := rect.Y + rect.Height/2 + (b.rng.Float64()-0.5)*rect.Height*0.8

	b.mouseMu.Lock()
	defer b.mouseMu.Unlock()

	if err := b.moveMouseAlongPath(ctx, b.lastMouseX, b.lastMouseY, targetX, targetY); err != nil {
		return err
	}
	b.lastMouseX, b.lastMouseY = targetX, targetY
	return nil
}

func (b *Browser) moveMouseAlongPath(ctx context.Context, startX, startY, endX, endY float64) error {
	dist := math.Hypot(endX-startX, endY-startY)

	// Bezier control points, randomised to bend the path
	variance := dist * 0.2
	p1x := startX + (endX-startX)*0.3 + (b.rng.Float64()-0.5)*variance
	p1y := startY + (endY-startY)*0.3 + (b.rng.Float64()-0.5)*variance
	p2x := startX + (endX-startX)*0.7 + (b.rng.Float64()-0.5)*variance
	p2y := startY + (endY-startY)*0.7 + (b.rng.Float64()-0.5)*variance

	// 800-1200 px/s
	speed := 800.0 + b.rng.Float64()*400.0
	duration := dist / speed
	if duration < 0.1 {
		duration = 0.1
	}

	// 60 FPS
	steps := int(duration * 60)
	if steps < 10 {
		steps = 10
	}
	slice := time.Duration(duration / float64(steps) * float64(time.Second))

	for i := 0; i <= steps; i++ {
		x, y := bezierPoint(easeInOut(float64(i)/float64(steps)),
			startX, startY, p1x, p1y, p2x, p2y, endX, endY)

		if err := b.Page.Mouse.MoveTo(proto.Point{X: x, Y: y}); err != nil {
			return err
		}
		if err := (stealth.RealSleeper{}).Sleep(ctx, slice); err != nil {
			return err
		}
	}
	return nil
}

// easeInOut is a cubic ease: slow start, fast middle, slow end
func easeInOut(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

func bezierPoint(t, x0, y0, x1, y1, x2, y2, x3, y3 float64) (float64, float64) {
	mt := 1 - t
	a, bb, c, d := mt*mt*mt, 3*mt*mt*t, 3*mt*t*t, t*t*t
	return a*x0 + bb*x1 + c*x2 + d*x3, a*y0 + bb*y1 + c*y2 + d*y3
}

// ClickElement brings the element into view, moves to it naturally and
// clicks it.
func (b *Browser) ClickElement(ctx context.Context, element *rod.Element) error {
	if err := element.Context(ctx).ScrollIntoView(); err != nil {
		return err
	}
	if err := b.HumanMove(ctx, element); err != nil {
		return err
	}

	// Short pause before the click
	pause := time.Duration(50+b.rng.Intn(100)) * time.Millisecond
	if err := (stealth.RealSleeper{}).Sleep(ctx, pause); err != nil {
		return err
	}
	return b.Page.Mouse.Click(proto.InputMouseButtonLeft, 1)
}
