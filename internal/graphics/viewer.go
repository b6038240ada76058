package graphics

import (
	"context"
	"fmt"
	"image"
	"time"
	"unsafe"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/lucasb-eyer/go-colorful"
	"go.uber.org/zap"

	"github.com/04shr/petzy/internal/avatar"
	"github.com/04shr/petzy/internal/hittest"
	"github.com/04shr/petzy/internal/materials"
	"github.com/04shr/petzy/internal/panels"
	"github.com/04shr/petzy/internal/scene"
	"github.com/04shr/petzy/internal/scenery"
)

const (
	// cameraDistance keeps a pixel-scaled model inside the default clip range.
	cameraDistance = 500
	foodRadius     = 28
	foodMargin     = 24
	noticeFontSize = 22
	noticeDuration = 2500 * time.Millisecond
)

var (
	foodColor   = rl.NewColor(214, 120, 60, 255)
	noticeColor = rl.NewColor(60, 40, 30, 255)
)

type resolvedModel struct {
	key  string
	path string
	err  error
}

type preparedBackground struct {
	key string
	img *image.RGBA
	err error
}

// Viewer draws the avatar over its scene background and turns mouse drags of the food
// icon into feed drops. GPU resources are created on the render thread once the file
// they come from is ready; slow work (downloads, image decoding) runs on goroutines.
type Viewer struct {
	ctx     context.Context
	av      *avatar.Avatar
	feed    *panels.Feed
	prep    *scenery.Backgrounds
	resolve Resolver
	log     *zap.Logger

	camera rl.Camera3D
	size   avatar.Size

	model       rl.Model
	modelLoaded bool
	modelKey    string
	models      chan resolvedModel

	bg          rl.Texture2D
	bgLoaded    bool
	bgKey       string
	backgrounds chan preparedBackground

	dragging bool
	notice   string
	noticeAt time.Time
}

// NewViewer returns a viewer for av. Nothing touches the GPU until the first Update.
func NewViewer(ctx context.Context, av *avatar.Avatar, feed *panels.Feed, prep *scenery.Backgrounds, resolve Resolver, log *zap.Logger) *Viewer {
	if log == nil {
		log = zap.NewNop()
	}
	v := &Viewer{
		ctx:         ctx,
		av:          av,
		feed:        feed,
		prep:        prep,
		resolve:     resolve,
		log:         log.Named("viewer"),
		models:      make(chan resolvedModel, 4),
		backgrounds: make(chan preparedBackground, 4),
	}
	v.camera.Position = rl.NewVector3(0, 0, cameraDistance)
	v.camera.Target = rl.NewVector3(0, 0, 0)
	v.camera.Up = rl.NewVector3(0, 1, 0)
	v.camera.Projection = rl.CameraOrthographic
	return v
}

// Notify shows msg at the top of the screen for a moment.
func (v *Viewer) Notify(msg string) {
	v.notice = msg
	v.noticeAt = time.Now()
}

// Update advances the avatar one frame and picks up finished loads. Call once per frame.
func (v *Viewer) Update() {
	size := avatar.Size{Width: int(rl.GetScreenWidth()), Height: int(rl.GetScreenHeight())}
	if size != v.size {
		v.size = size
		v.av.Resize(size)
		// Orthographic: one world unit per pixel vertically, matching the responsive scale.
		v.camera.Fovy = float32(size.Height)
	}
	v.av.Tick()
	v.syncModel()
	v.syncBackground()
	v.handleDrag()
}

func (v *Viewer) syncModel() {
	st := v.av.Status()
	if st.State == avatar.StateReady {
		key := fmt.Sprintf("%s#%d", st.Asset, st.Generation)
		if key != v.modelKey {
			v.modelKey = key
			asset := st.Asset
			go func() {
				path, err := v.resolve.Resolve(v.ctx, asset)
				select {
				case v.models <- resolvedModel{key: key, path: path, err: err}:
				case <-v.ctx.Done():
				}
			}()
		}
	}

	for {
		select {
		case res := <-v.models:
			if res.key != v.modelKey {
				continue
			}
			if res.err != nil {
				v.log.Error("resolve model", zap.String("asset", res.key), zap.Error(res.err))
				continue
			}
			v.unloadModel()
			v.model = rl.LoadModel(res.path)
			v.modelLoaded = rl.IsModelValid(v.model)
			if !v.modelLoaded {
				v.log.Error("model failed to load on GPU", zap.String("path", res.path))
				continue
			}
			v.log.Info("model uploaded", zap.String("path", res.path), zap.Int32("meshes", v.model.MeshCount))
		default:
			return
		}
	}
}

func (v *Viewer) syncBackground() {
	sc, ok := v.av.Scene()
	key := ""
	if ok && sc.Img != "" {
		key = fmt.Sprintf("%s|%dx%d", sc.Img, v.size.Width, v.size.Height)
	}
	if key != v.bgKey {
		v.bgKey = key
		if key == "" {
			v.unloadBackground()
		} else {
			w, h := v.size.Width, v.size.Height
			go func() {
				img, err := v.prep.Prepare(v.ctx, sc, w, h)
				select {
				case v.backgrounds <- preparedBackground{key: key, img: img, err: err}:
				case <-v.ctx.Done():
				}
			}()
		}
	}

	for {
		select {
		case res := <-v.backgrounds:
			if res.key != v.bgKey {
				continue
			}
			if res.err != nil {
				v.log.Warn("background unavailable", zap.String("scene", sc.Name), zap.Error(res.err))
				v.unloadBackground()
				continue
			}
			v.unloadBackground()
			img := rl.NewImageFromImage(res.img)
			v.bg = rl.LoadTextureFromImage(img)
			rl.UnloadImage(img)
			v.bgLoaded = rl.IsTextureValid(v.bg)
		default:
			return
		}
	}
}

func (v *Viewer) foodHome() rl.Vector2 {
	return rl.NewVector2(foodMargin+foodRadius, float32(v.size.Height)-foodMargin-foodRadius)
}

func (v *Viewer) handleDrag() {
	mouse := rl.GetMousePosition()
	if rl.IsMouseButtonPressed(rl.MouseButtonLeft) && rl.CheckCollisionPointCircle(mouse, v.foodHome(), foodRadius) {
		v.dragging = true
	}
	if v.dragging && rl.IsMouseButtonReleased(rl.MouseButtonLeft) {
		v.dragging = false
		if msg, ok := v.feed.Drop(hittest.Point{X: mouse.X, Y: mouse.Y}, v.AvatarBounds()); ok {
			v.Notify(msg)
		}
	}
}

// AvatarBounds is the avatar's on-screen rectangle. Before a model is on the GPU it is a
// square of the responsive scale centered in the window.
func (v *Viewer) AvatarBounds() hittest.Rect {
	s := v.av.Scale()
	cx, cy := float32(v.size.Width)/2, float32(v.size.Height)/2
	if !v.modelLoaded {
		return hittest.Rect{Left: cx - s/2, Top: cy - s/2, Width: s, Height: s}
	}
	bb := rl.GetModelBoundingBox(v.model)
	minX, minY := math32.Inf(1), math32.Inf(1)
	maxX, maxY := math32.Inf(-1), math32.Inf(-1)
	for i := 0; i < 8; i++ {
		corner := rl.NewVector3(pick(i&1, bb.Min.X, bb.Max.X)*s, pick(i&2, bb.Min.Y, bb.Max.Y)*s, pick(i&4, bb.Min.Z, bb.Max.Z)*s)
		p := rl.GetWorldToScreen(corner, v.camera)
		minX, maxX = math32.Min(minX, p.X), math32.Max(maxX, p.X)
		minY, maxY = math32.Min(minY, p.Y), math32.Max(maxY, p.Y)
	}
	return hittest.Rect{Left: minX, Top: minY, Width: maxX - minX, Height: maxY - minY}
}

func pick(bit int, lo, hi float32) float32 {
	if bit == 0 {
		return lo
	}
	return hi
}

// Draw renders background, avatar, food icon and notice.
func (v *Viewer) Draw() {
	if v.bgLoaded {
		rl.DrawTexture(v.bg, 0, 0, rl.White)
	}
	if v.modelLoaded {
		rl.BeginMode3D(v.camera)
		v.drawAvatar()
		rl.EndMode3D()
	}
	v.drawFood()
	v.drawNotice()
}

// drawAvatar draws each model mesh with the color and visibility of the scene node in the
// same render slot. Meshes beyond the known slots are drawn untouched.
func (v *Viewer) drawAvatar() {
	meshes := unsafe.Slice(v.model.Meshes, v.model.MeshCount)
	mats := unsafe.Slice(v.model.Materials, v.model.MaterialCount)
	meshMat := unsafe.Slice(v.model.MeshMaterial, v.model.MeshCount)
	s := v.av.Scale()
	transform := rl.MatrixMultiply(v.model.Transform, rl.MatrixScale(s, s, s))

	v.av.Render(func(g *scene.Graph, _ *materials.Registry) {
		if g == nil {
			return
		}
		slots := g.RenderSlots()
		for i := range meshes {
			mat := mats[meshMat[i]]
			if i < len(slots) {
				n := slots[i]
				if !g.Shown(n) {
					continue
				}
				if n.Material != nil {
					if albedo := mat.GetMap(rl.MapAlbedo); albedo != nil {
						albedo.Color = displayColor(n.Material)
					}
					n.Material.NeedsUpdate = false
				}
			}
			rl.DrawMesh(meshes[i], mat, transform)
		}
	})
}

// displayColor converts a material color into what the default shader should output.
func displayColor(m *scene.Material) rl.Color {
	c := m.Color
	if m.ColorSpace == scene.ColorSpaceSRGB {
		c = colorful.LinearRgb(c.R, c.G, c.B)
	}
	r, g, b := c.Clamped().RGB255()
	return rl.NewColor(r, g, b, 255)
}

func (v *Viewer) drawFood() {
	pos := v.foodHome()
	if v.dragging {
		pos = rl.GetMousePosition()
		bounds := v.AvatarBounds()
		rl.DrawRectangleLinesEx(rl.NewRectangle(bounds.Left, bounds.Top, bounds.Width, bounds.Height), 1, rl.Fade(foodColor, 0.4))
	}
	rl.DrawCircleV(pos, foodRadius, foodColor)
	label := "food"
	w := rl.MeasureText(label, 14)
	rl.DrawText(label, int32(pos.X)-w/2, int32(pos.Y)-7, 14, rl.White)
}

func (v *Viewer) drawNotice() {
	if v.notice == "" {
		return
	}
	age := time.Since(v.noticeAt)
	if age > noticeDuration {
		v.notice = ""
		return
	}
	alpha := math32.Min(1, 2*(1-float32(age)/float32(noticeDuration)))
	w := rl.MeasureText(v.notice, noticeFontSize)
	x := (int32(v.size.Width) - w) / 2
	rl.DrawText(v.notice, x, 24, noticeFontSize, rl.Fade(noticeColor, alpha))
}

func (v *Viewer) unloadModel() {
	if v.modelLoaded {
		rl.UnloadModel(v.model)
		v.modelLoaded = false
	}
}

func (v *Viewer) unloadBackground() {
	if v.bgLoaded {
		rl.UnloadTexture(v.bg)
		v.bgLoaded = false
	}
}

// Close frees GPU resources. Call before the window closes.
func (v *Viewer) Close() {
	v.unloadModel()
	v.unloadBackground()
}
