package display

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"go.uber.org/zap"

	"github.com/junsooki/rawconv/internal/logging"
)

var background = color.NRGBA{0x18, 0x18, 0x18, 0xFF}

// Viewer shows the frames of a FrameSource one at a time. Left and Right
// step through them and Escape quits.
type Viewer struct {
	src    FrameSource
	logger *zap.Logger

	index       int
	loaded      int
	frame       *image.NRGBA
	ebitenImage *ebiten.Image
}

// NewViewer creates an Ebitengine-based viewer over src.
func NewViewer(src FrameSource, logger *zap.Logger) *Viewer {
	if logger == nil {
		logger = logging.Logger()
	}
	return &Viewer{
		src:    src,
		logger: logger,
		loaded: -1,
	}
}

// Run starts the Ebitengine game loop. Must be called from the main goroutine.
func (v *Viewer) Run() error {
	if v.src.Len() == 0 {
		return fmt.Errorf("no frames to show")
	}
	ebiten.SetWindowSize(1280, 720)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	err := ebiten.RunGame(v)
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

// --- ebiten.Game interface ---

func (v *Viewer) Update() error {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		return ebiten.Termination
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowRight):
		v.index = step(v.index, 1, v.src.Len())
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft):
		v.index = step(v.index, -1, v.src.Len())
	}
	if v.index != v.loaded {
		v.load(v.index)
	}
	return nil
}

func (v *Viewer) load(i int) {
	frame, err := v.src.Frame(i)
	title := fmt.Sprintf("%s (%d/%d)", v.src.Name(i), i+1, v.src.Len())
	if err != nil {
		v.logger.Warn("decode failed", zap.String("file", v.src.Name(i)), zap.Error(err))
		frame = placeholder()
		title += " - " + err.Error()
	} else {
		title += fmt.Sprintf(" %dx%d", frame.Bounds().Dx(), frame.Bounds().Dy())
	}
	ebiten.SetWindowTitle(title)

	if v.ebitenImage != nil {
		v.ebitenImage.Deallocate()
	}
	// NewImageFromImage premultiplies alpha.
	v.ebitenImage = ebiten.NewImageFromImage(frame)
	v.frame = frame
	v.loaded = i
}

func (v *Viewer) Draw(screen *ebiten.Image) {
	screen.Fill(background)
	if v.ebitenImage == nil {
		return
	}

	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	fw, fh := float64(v.frame.Bounds().Dx()), float64(v.frame.Bounds().Dy())
	scale, offsetX, offsetY := aspectFitTransform(float64(sw), float64(sh), fw, fh)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(offsetX, offsetY)
	op.Filter = ebiten.FilterNearest
	screen.DrawImage(v.ebitenImage, op)
}

func (v *Viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}
