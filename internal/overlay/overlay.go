// Package overlay draws hand landmarks and round captions onto video frames.
package overlay

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/rpscam/internal/detector"
)

// Drawing style.
const (
	JointRadius = 5
	BoneWidth   = 2
	CaptionSize = 1.6
	captionEdge = 16
)

var (
	JointColor   = color.RGBA{R: 0, G: 255, B: 0, A: 255}   // lime
	BoneColor    = color.RGBA{R: 0, G: 255, B: 255, A: 255} // cyan
	CaptionColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	shadowColor  = color.RGBA{A: 255}
)

// Project maps a normalized landmark onto a frame of the given size.
func Project(p detector.Point3D, width, height int) image.Point {
	return image.Pt(int(p.X*float64(width)), int(p.Y*float64(height)))
}

// DrawHand draws bones along each finger chain and a dot on every joint.
// Landmarks are expected in normalized [0,1] frame coordinates.
func DrawHand(img *gocv.Mat, hand *detector.HandLandmarks) {
	if hand == nil || img.Empty() {
		return
	}
	w, h := img.Cols(), img.Rows()

	for _, chain := range detector.FingerChains {
		for i := 1; i < len(chain); i++ {
			from := Project(hand.Points[chain[i-1]], w, h)
			to := Project(hand.Points[chain[i]], w, h)
			gocv.Line(img, from, to, BoneColor, BoneWidth)
		}
	}
	for _, p := range hand.Points {
		gocv.Circle(img, Project(p, w, h), JointRadius, JointColor, -1)
	}
}

// DrawCaption writes text centered near the top of the frame.
func DrawCaption(img *gocv.Mat, text string) {
	if text == "" || img.Empty() {
		return
	}
	size := gocv.GetTextSize(text, gocv.FontHersheySimplex, CaptionSize, 3)
	x := (img.Cols() - size.X) / 2
	if x < 0 {
		x = 0
	}
	org := image.Pt(x, size.Y+captionEdge)

	gocv.PutText(img, text, org.Add(image.Pt(2, 2)), gocv.FontHersheySimplex, CaptionSize, shadowColor, 4)
	gocv.PutText(img, text, org, gocv.FontHersheySimplex, CaptionSize, CaptionColor, 3)
}

// Draw renders the hand, if any, and the caption.
func Draw(img *gocv.Mat, hand *detector.HandLandmarks, caption string) {
	DrawHand(img, hand)
	DrawCaption(img, caption)
}
