package annotation

import (
	"encoding/json"
	"fmt"

	"github.com/defectscope/annotator/internal/legend"
)

// Wire names of the event types.
const (
	EventPointerDown = "pointerdown"
	EventPointerMove = "pointermove"
	EventPointerUp   = "pointerup"
	EventKeyDown     = "keydown"
	EventSetMode     = "mode"
	EventSetClass    = "class"
	EventReclassify  = "reclassify"
	EventLoad        = "load"
)

// wireEvent is the JSON shape shared by every event type.
type wireEvent struct {
	Type  string          `json:"type"`
	X     float64         `json:"x,omitempty"`
	Y     float64         `json:"y,omitempty"`
	Key   string          `json:"key,omitempty"`
	Mode  *Mode           `json:"mode,omitempty"`
	Class *legend.ClassID `json:"class,omitempty"`
	Rects []Rect          `json:"rects,omitempty"`
}

// DecodeEvent parses an event from its JSON form, for example
// {"type":"pointerdown","x":10,"y":20} or {"type":"mode","mode":"select"}.
func DecodeEvent(data []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	switch w.Type {
	case EventPointerDown:
		return PointerDown{At: Point{X: w.X, Y: w.Y}}, nil
	case EventPointerMove:
		return PointerMove{At: Point{X: w.X, Y: w.Y}}, nil
	case EventPointerUp:
		return PointerUp{}, nil
	case EventKeyDown:
		if w.Key == "" {
			return nil, fmt.Errorf("decode event: %s without key", w.Type)
		}
		return KeyDown{Key: w.Key}, nil
	case EventSetMode:
		if w.Mode == nil {
			return nil, fmt.Errorf("decode event: %s without mode", w.Type)
		}
		return SetMode{Mode: *w.Mode}, nil
	case EventSetClass, EventReclassify:
		if w.Class == nil {
			return nil, fmt.Errorf("decode event: %s without class", w.Type)
		}
		if !legend.Valid(*w.Class) {
			return nil, fmt.Errorf("decode event: %w: %d", legend.ErrUnknownClass, *w.Class)
		}
		if w.Type == EventSetClass {
			return SetClass{Class: *w.Class}, nil
		}
		return Reclassify{Class: *w.Class}, nil
	case EventLoad:
		return Load{Rects: w.Rects}, nil
	default:
		return nil, fmt.Errorf("decode event: unknown type %q", w.Type)
	}
}

// EncodeEvent is the inverse of DecodeEvent.
func EncodeEvent(ev Event) ([]byte, error) {
	var w wireEvent
	switch e := ev.(type) {
	case PointerDown:
		w = wireEvent{Type: EventPointerDown, X: e.At.X, Y: e.At.Y}
	case PointerMove:
		w = wireEvent{Type: EventPointerMove, X: e.At.X, Y: e.At.Y}
	case PointerUp:
		w = wireEvent{Type: EventPointerUp}
	case KeyDown:
		w = wireEvent{Type: EventKeyDown, Key: e.Key}
	case SetMode:
		w = wireEvent{Type: EventSetMode, Mode: &e.Mode}
	case SetClass:
		w = wireEvent{Type: EventSetClass, Class: &e.Class}
	case Reclassify:
		w = wireEvent{Type: EventReclassify, Class: &e.Class}
	case Load:
		w = wireEvent{Type: EventLoad, Rects: e.Rects}
	default:
		return nil, fmt.Errorf("encode event: unsupported %T", ev)
	}
	return json.Marshal(w)
}
