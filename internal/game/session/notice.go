package session

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Kind classifies a Notice for the client.
type Kind string

const (
	KindMessage      Kind = "message"
	KindStats        Kind = "stats"
	KindLevelUp      Kind = "level_up"
	KindEffect       Kind = "effect"
	KindRemove       Kind = "remove"
	KindGroundItem   Kind = "ground_item"
	KindGroundExpire Kind = "ground_expire"
	KindSpawn        Kind = "spawn"
)

// Notice is one piece of feedback pushed to a player.
type Notice struct {
	Kind   Kind
	Text   string
	Fields map[string]any
}

// Textf formats a player-facing string with grouped numbers ("1,234").
func Textf(format string, args ...any) string {
	return message.NewPrinter(language.English).Sprintf(format, args...)
}

// Message returns a console-style text notice.
func Message(format string, args ...any) Notice {
	return Notice{Kind: KindMessage, Text: Textf(format, args...)}
}

// Frame encodes n as a serialized protobuf Struct.
//
// Postcondition: returns an error if a field value has no Struct representation.
func (n Notice) Frame() ([]byte, error) {
	m := map[string]any{"kind": string(n.Kind)}
	if n.Text != "" {
		m["text"] = n.Text
	}
	if len(n.Fields) > 0 {
		m["fields"] = n.Fields
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("encoding %s notice: %w", n.Kind, err)
	}
	return proto.Marshal(s)
}

// DecodeFrame parses a frame produced by Frame.
func DecodeFrame(frame []byte) (Notice, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(frame, &s); err != nil {
		return Notice{}, fmt.Errorf("decoding notice: %w", err)
	}
	m := s.AsMap()
	n := Notice{}
	if k, ok := m["kind"].(string); ok {
		n.Kind = Kind(k)
	}
	if t, ok := m["text"].(string); ok {
		n.Text = t
	}
	if f, ok := m["fields"].(map[string]any); ok {
		n.Fields = f
	}
	return n, nil
}
