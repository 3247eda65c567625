package protocol

import (
	"encoding/json"
	"testing"

	"overburnt.game/internal/sim/geom"
)

func TestValidate_Samples(t *testing.T) {
	ok := []struct {
		typ string
		raw string
	}{
		{TypeHello, `{"type":"HELLO","protocol_version":"1.0","player_name":"p1"}`},
		{TypeHello, `{"type":"HELLO","protocol_version":"1.0","player_name":"p1","level_index":2,"seed":42}`},
		{TypeInput, `{"type":"INPUT","protocol_version":"1.0","kind":"DRAG_START","slot":"mine/1","pos":{"x":1,"y":9}}`},
		{TypeInput, `{"type":"INPUT","protocol_version":"1.0","kind":"DRAG_END","pos":{"x":15.5,"y":10}}`},
		{TypeInput, `{"type":"INPUT","protocol_version":"1.0","kind":"CLICK","slot":"bakery/1"}`},
		{TypeInput, `{"type":"INPUT","protocol_version":"1.0","kind":"CONTINUE"}`},
		{TypeWelcome, `{"anything":"goes"}`},
	}
	for _, c := range ok {
		if err := Validate(c.typ, []byte(c.raw)); err != nil {
			t.Fatalf("validate %s: %v", c.raw, err)
		}
	}

	bad := []struct {
		typ string
		raw string
	}{
		{TypeHello, `{"type":"HELLO","protocol_version":"1.0"}`},
		{TypeHello, `{"type":"HELLO","protocol_version":"1.0","player_name":"p","level_index":-1}`},
		{TypeInput, `{"type":"INPUT","protocol_version":"1.0","kind":"JUMP"}`},
		{TypeInput, `{"type":"INPUT","protocol_version":"1.0","kind":"DRAG_START","pos":{"x":1,"y":1}}`},
		{TypeInput, `{"type":"INPUT","protocol_version":"1.0","kind":"CLICK","slot":"mine"}`},
		{TypeInput, `{"type":"INPUT","protocol_version":"1.0","kind":"DRAG_MOVE"}`},
		{TypeInput, `not json`},
	}
	for _, c := range bad {
		if err := Validate(c.typ, []byte(c.raw)); err == nil {
			t.Fatalf("expected %s to be rejected", c.raw)
		}
	}
}

func TestInputMsg_MatchesSchema(t *testing.T) {
	b, err := json.Marshal(InputMsg{
		Type:            TypeInput,
		ProtocolVersion: Version,
		Kind:            InputDragStart,
		Slot:            "forge/2",
		Pos:             &geom.Vec2{X: 10, Y: 5},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := Validate(TypeInput, b); err != nil {
		t.Fatalf("validate: %v", err)
	}
	base, err := DecodeBase(b)
	if err != nil || base.Type != TypeInput || base.ProtocolVersion != Version {
		t.Fatalf("DecodeBase: got %+v err=%v", base, err)
	}
}
