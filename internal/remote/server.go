package remote

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/junsooki/rawconv/internal/decoder"
	"github.com/junsooki/rawconv/internal/encoder"
	"github.com/junsooki/rawconv/internal/logging"
)

// Server decodes raw containers sent over a WebSocket and replies with the
// encoded image.
type Server struct {
	Decoder decoder.Decoder
	// Quality is passed to encoder.New for jpeg requests.
	Quality         int
	MaxMessageBytes int64
	Logger          *zap.Logger

	upgrader websocket.Upgrader
}

// NewServer creates a server that decodes with dec.
func NewServer(dec decoder.Decoder, maxMessageBytes int64, logger *zap.Logger) *Server {
	if logger == nil {
		logger = logging.Logger()
	}
	return &Server{
		Decoder:         dec,
		Quality:         90,
		MaxMessageBytes: maxMessageBytes,
		Logger:          logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
		},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Warn("websocket upgrade", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	defer conn.Close()
	if s.MaxMessageBytes > 0 {
		conn.SetReadLimit(s.MaxMessageBytes)
	}

	log := s.Logger.With(zap.String("remote", r.RemoteAddr))
	log.Debug("client connected")

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("read", zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case TypePing:
			err = conn.WriteJSON(Message{Type: TypePong})
		case TypeConvert:
			err = s.handleConvert(conn, msg, log)
		default:
			err = conn.WriteJSON(Message{
				Type: TypeError,
				ID:   msg.ID,
				Kind: KindBadRequest,
				Msg:  fmt.Sprintf("unknown message type %q", msg.Type),
			})
		}
		if err != nil {
			log.Warn("write", zap.Error(err))
			return
		}
	}
}

func (s *Server) handleConvert(conn *websocket.Conn, req Message, log *zap.Logger) error {
	mt, data, err := conn.ReadMessage()
	if err != nil {
		return err
	}
	if mt != websocket.BinaryMessage {
		return replyError(conn, req.ID, KindBadRequest, errors.New("container must be a binary message"))
	}

	enc, err := encoder.New(req.Format, s.Quality)
	if err != nil {
		return replyError(conn, req.ID, KindBadFormat, err)
	}

	img, err := s.Decoder.Decode(bytes.NewReader(data))
	if err != nil {
		log.Info("decode failed",
			zap.Uint64("id", req.ID),
			zap.Int("bytes", len(data)),
			zap.String("kind", decoder.Kind(err)),
			zap.Error(err))
		return replyError(conn, req.ID, decoder.Kind(err), err)
	}

	var buf bytes.Buffer
	if err := enc.Encode(&buf, img); err != nil {
		return replyError(conn, req.ID, "internal", err)
	}

	err = conn.WriteJSON(Message{
		Type:   TypeResult,
		ID:     req.ID,
		Format: req.Format,
		Width:  img.Width,
		Height: img.Height,
	})
	if err != nil {
		return err
	}
	log.Debug("converted",
		zap.Uint64("id", req.ID),
		zap.Int("width", img.Width),
		zap.Int("height", img.Height),
		zap.Int("encoded", buf.Len()))
	return conn.WriteMessage(websocket.BinaryMessage, buf.Bytes())
}

func replyError(conn *websocket.Conn, id uint64, kind string, err error) error {
	return conn.WriteJSON(Message{Type: TypeError, ID: id, Kind: kind, Msg: err.Error()})
}
