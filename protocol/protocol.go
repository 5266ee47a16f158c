package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/gorilla/schema"

	"github.com/tomasstrnad1997/sweeper/mines"
)

type MessageType string

const (
	GameInfo     MessageType = "game_info"
	ErrorMessage MessageType = "error"
)

const maxBodyBytes = 1 << 16

var (
	ErrMissingField  = errors.New("missing required field")
	ErrInvalidBody   = errors.New("invalid request body")
	ErrUnknownFormat = errors.New("unsupported content type")
)

var formDecoder = newFormDecoder()

func newFormDecoder() *schema.Decoder {
	dec := schema.NewDecoder()
	dec.IgnoreUnknownKeys(true)
	return dec
}

type NewGameRequest struct {
	Width      int `json:"width" schema:"width,required"`
	Height     int `json:"height" schema:"height,required"`
	MinesCount int `json:"mines_count" schema:"mines_count,required"`
}

// GameTurnRequest addresses a cell by column (x) and row (y).
type GameTurnRequest struct {
	GameID string `json:"game_id" schema:"game_id,required"`
	Col    int    `json:"col" schema:"col,required"`
	Row    int    `json:"row" schema:"row,required"`
}

type GameInfoResponse struct {
	GameID     string     `json:"game_id"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	MinesCount int        `json:"mines_count"`
	Field      [][]string `json:"field"`
	Completed  bool       `json:"completed"`
	Status     string     `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// WatchMessage is pushed to websocket watchers of a game.
type WatchMessage struct {
	Type  MessageType       `json:"type"`
	Game  *GameInfoResponse `json:"game,omitempty"`
	Error string            `json:"error,omitempty"`
}

// JSON bodies are decoded into pointer mirrors so absent fields can be told
// apart from zero values.
type newGameBody struct {
	Width      *int `json:"width"`
	Height     *int `json:"height"`
	MinesCount *int `json:"mines_count"`
}

type turnBody struct {
	GameID *string `json:"game_id"`
	Col    *int    `json:"col"`
	Row    *int    `json:"row"`
}

func DecodeNewGameRequest(r *http.Request) (*NewGameRequest, error) {
	var req NewGameRequest
	form, err := isForm(r)
	if err != nil {
		return nil, err
	}
	if form {
		if err := decodeForm(r, &req); err != nil {
			return nil, err
		}
		return &req, nil
	}
	var body newGameBody
	if err := decodeJSON(r, &body); err != nil {
		return nil, err
	}
	switch {
	case body.Width == nil:
		return nil, fmt.Errorf("%w: width", ErrMissingField)
	case body.Height == nil:
		return nil, fmt.Errorf("%w: height", ErrMissingField)
	case body.MinesCount == nil:
		return nil, fmt.Errorf("%w: mines_count", ErrMissingField)
	}
	req = NewGameRequest{Width: *body.Width, Height: *body.Height, MinesCount: *body.MinesCount}
	return &req, nil
}

func DecodeGameTurnRequest(r *http.Request) (*GameTurnRequest, error) {
	var req GameTurnRequest
	form, err := isForm(r)
	if err != nil {
		return nil, err
	}
	if form {
		if err := decodeForm(r, &req); err != nil {
			return nil, err
		}
		return &req, nil
	}
	var body turnBody
	if err := decodeJSON(r, &body); err != nil {
		return nil, err
	}
	switch {
	case body.GameID == nil:
		return nil, fmt.Errorf("%w: game_id", ErrMissingField)
	case body.Col == nil:
		return nil, fmt.Errorf("%w: col", ErrMissingField)
	case body.Row == nil:
		return nil, fmt.Errorf("%w: row", ErrMissingField)
	}
	req = GameTurnRequest{GameID: *body.GameID, Col: *body.Col, Row: *body.Row}
	return &req, nil
}

func isForm(r *http.Request) (bool, error) {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return false, nil
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false, fmt.Errorf("%w: %s", ErrUnknownFormat, contentType)
	}
	switch mediaType {
	case "application/json":
		return false, nil
	case "application/x-www-form-urlencoded":
		return true, nil
	default:
		return false, fmt.Errorf("%w: %s", ErrUnknownFormat, mediaType)
	}
}

func decodeForm(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	if err := formDecoder.Decode(dst, r.PostForm); err != nil {
		var multi schema.MultiError
		if errors.As(err, &multi) {
			for _, e := range multi {
				var empty schema.EmptyFieldError
				if errors.As(e, &empty) {
					return fmt.Errorf("%w: %s", ErrMissingField, empty.Key)
				}
			}
		}
		return fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	return nil
}

// decodeJSON accepts exactly one JSON value of at most maxBodyBytes.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			err = errors.New("trailing data after JSON body")
		}
		return fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	return nil
}

// EncodeGameInfo builds the response for the current state of a game.
func EncodeGameInfo(game *mines.Game) *GameInfoResponse {
	field, status := game.View()
	return NewGameInfo(game.ID, game.Params, field, status)
}

func NewGameInfo(id string, params mines.GameParams, field [][]string, status mines.Status) *GameInfoResponse {
	return &GameInfoResponse{
		GameID:     id,
		Width:      params.Width,
		Height:     params.Height,
		MinesCount: params.Mines,
		Field:      field,
		Completed:  status.Finished(),
		Status:     status.String(),
	}
}

func EncodeWatchMessage(info *GameInfoResponse) ([]byte, error) {
	return json.Marshal(WatchMessage{Type: GameInfo, Game: info})
}

func EncodeWatchError(message string) ([]byte, error) {
	return json.Marshal(WatchMessage{Type: ErrorMessage, Error: message})
}

func DecodeWatchMessage(data []byte) (*WatchMessage, error) {
	var msg WatchMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case GameInfo:
		if msg.Game == nil {
			return nil, fmt.Errorf("%s message without game", msg.Type)
		}
	case ErrorMessage:
	default:
		return nil, fmt.Errorf("unknown message type %q", msg.Type)
	}
	return &msg, nil
}
