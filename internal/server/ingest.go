package server

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/rpscam/internal/detector"
	"github.com/ayusman/rpscam/internal/gesture"
)

// maxIngestMessage caps one landmark message.
const maxIngestMessage = 64 << 10

// Keypoint is one landmark as sent by the browser detector.
type Keypoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// IngestHand is one detected hand in an ingest message.
type IngestHand struct {
	Keypoints  []Keypoint `json:"keypoints"`
	Handedness string     `json:"handedness,omitempty"`
	Score      float64    `json:"score,omitempty"`
}

// IngestMessage is one browser detection result.
type IngestMessage struct {
	Hands []IngestHand `json:"hands"`
}

// IngestReply is sent back for every accepted message.
type IngestReply struct {
	Gesture gesture.Gesture `json:"gesture"`
}

// ToLandmarks validates and converts the message's hands.
func (m IngestMessage) ToLandmarks() ([]detector.HandLandmarks, error) {
	hands := make([]detector.HandLandmarks, 0, len(m.Hands))
	for _, h := range m.Hands {
		points := make([]detector.Point3D, len(h.Keypoints))
		for i, kp := range h.Keypoints {
			points[i] = detector.Point3D{X: kp.X, Y: kp.Y, Z: kp.Z}
		}

		hand, err := detector.FromPoints(points)
		if err != nil {
			return nil, err
		}
		hand.Handedness = h.Handedness
		hand.Score = h.Score
		hands = append(hands, hand)
	}
	return hands, nil
}

// IngestHandler accepts landmarks from a detector running in the browser
// and feeds them to the game.
type IngestHandler struct {
	game Game
}

// NewIngestHandler creates an IngestHandler feeding g.
func NewIngestHandler(g Game) *IngestHandler {
	return &IngestHandler{game: g}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxIngestMessage)

	for {
		var msg IngestMessage
		if err := conn.ReadJSON(&msg); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				closeWith(conn, websocket.CloseUnsupportedData, "invalid landmark message")
			}
			return
		}

		hands, err := msg.ToLandmarks()
		if err != nil {
			if errors.Is(err, detector.ErrIncompleteHand) {
				closeWith(conn, websocket.ClosePolicyViolation, err.Error())
				return
			}
			closeWith(conn, websocket.CloseInternalServerErr, err.Error())
			return
		}

		obs := h.game.Observe(hands)

		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(IngestReply{Gesture: obs.Gesture}); err != nil {
			return
		}
	}
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
}
